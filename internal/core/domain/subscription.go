package domain

import "time"

// SubscriptionLimits are the per-tier quotas the server enforces.
type SubscriptionLimits struct {
	MonthlyJobs        int  `json:"monthly_jobs"`
	MaxFilesPerJob     int  `json:"max_files_per_job"`
	MaxFileSizeMB      int  `json:"max_file_size_mb"`
	PriorityProcessing bool `json:"priority_processing"`
	EmailSupport       bool `json:"email_support"`
}

// SubscriptionUsage reports the counters of the current usage period.
type SubscriptionUsage struct {
	JobsThisPeriod  int `json:"jobs_this_period"`
	FilesThisPeriod int `json:"files_this_period"`
}

// SubscriptionLimitInfo is the structured payload of an HTTP 402 response to
// a start-job call, and of GET /subscription/usage. It is an expected
// outcome, not a failure: no job exists when it is returned.
type SubscriptionLimitInfo struct {
	Tier            string             `json:"tier"`
	Limits          SubscriptionLimits `json:"limits"`
	Usage           SubscriptionUsage  `json:"usage"`
	ResetDate       time.Time          `json:"reset_date"`
	UpgradeRequired bool               `json:"upgrade_required"`
	Message         string             `json:"message,omitempty"`
}
