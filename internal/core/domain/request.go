package domain

import (
	"errors"
	"fmt"
	"strings"
)

type Language string

const (
	LanguageEnglish Language = "English"
	LanguageFrench  Language = "French"
)

type EducationLevel string

const (
	EducationPrimarySchool EducationLevel = "Primary School"
	EducationHighSchool    EducationLevel = "High School"
	EducationCollege       EducationLevel = "College"
	EducationGraduate      EducationLevel = "Graduate"
	EducationPostgraduate  EducationLevel = "Postgraduate"
	EducationNotListed     EducationLevel = "Not listed"
)

type TechnicalLevel string

const (
	TechnicalMedicalScience TechnicalLevel = "Medical Science"
	TechnicalOtherScience   TechnicalLevel = "Other Science"
	TechnicalNonScience     TechnicalLevel = "Non-Science"
)

// Client-side fast-fail ceilings. The server enforces the authoritative
// limits; these only spare the user a doomed upload.
const (
	MaxFilesPerRequest = 20
	MaxPDFBytes        = 25 << 20
	MaxDOCXBytes       = 15 << 20
	MaxImageBytes      = 10 << 20
)

// Attachment is one document to interpret, held in memory for the duration of
// a submission attempt.
type Attachment struct {
	Filename  string
	MediaType string
	Content   []byte
}

func (a Attachment) Size() int64 { return int64(len(a.Content)) }

// DocumentKind buckets a media type into the size-ceiling classes the limits
// above are expressed in.
type DocumentKind string

const (
	KindPDF   DocumentKind = "pdf"
	KindDOCX  DocumentKind = "docx"
	KindImage DocumentKind = "image"
	KindOther DocumentKind = "other"
)

func (a Attachment) Kind() DocumentKind {
	mt := strings.ToLower(strings.TrimSpace(a.MediaType))
	switch {
	case mt == "application/pdf":
		return KindPDF
	case mt == "application/msword",
		mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	default:
		return KindOther
	}
}

// InterpretationRequest is the value object sent to start a job.
type InterpretationRequest struct {
	Files          []Attachment
	Language       Language
	EducationLevel EducationLevel
	TechnicalLevel TechnicalLevel
}

// Validate applies the local submission gate. A request that fails here must
// never reach the gateway.
func (r InterpretationRequest) Validate() error {
	if len(r.Files) == 0 {
		return WrapError(ErrValidation, "validate request", errors.New("at least one file is required"))
	}
	if len(r.Files) > MaxFilesPerRequest {
		return WrapError(ErrValidation, "validate request",
			fmt.Errorf("too many files: %d (maximum %d)", len(r.Files), MaxFilesPerRequest))
	}
	for _, f := range r.Files {
		if strings.TrimSpace(f.Filename) == "" {
			return WrapError(ErrValidation, "validate request", errors.New("file is missing a name"))
		}
		if len(f.Content) == 0 {
			return WrapError(ErrValidation, "validate request",
				fmt.Errorf("file %q is empty", f.Filename))
		}
		if err := checkSizeCeiling(f); err != nil {
			return err
		}
	}
	if !validLanguage(r.Language) {
		return WrapError(ErrValidation, "validate request", errors.New("language is not set"))
	}
	if !validEducationLevel(r.EducationLevel) {
		return WrapError(ErrValidation, "validate request", errors.New("education level is not set"))
	}
	if !validTechnicalLevel(r.TechnicalLevel) {
		return WrapError(ErrValidation, "validate request", errors.New("technical level is not set"))
	}
	return nil
}

func checkSizeCeiling(f Attachment) error {
	var ceiling int64
	switch f.Kind() {
	case KindPDF:
		ceiling = MaxPDFBytes
	case KindDOCX:
		ceiling = MaxDOCXBytes
	case KindImage:
		ceiling = MaxImageBytes
	default:
		return WrapError(ErrValidation, "validate request",
			fmt.Errorf("file %q has unsupported media type %q", f.Filename, f.MediaType))
	}
	if f.Size() > ceiling {
		return WrapError(ErrValidation, "validate request",
			fmt.Errorf("file %q exceeds the %dMB limit for its type", f.Filename, ceiling>>20))
	}
	return nil
}

func validLanguage(l Language) bool {
	switch l {
	case LanguageEnglish, LanguageFrench:
		return true
	}
	return false
}

func validEducationLevel(l EducationLevel) bool {
	switch l {
	case EducationPrimarySchool, EducationHighSchool, EducationCollege,
		EducationGraduate, EducationPostgraduate, EducationNotListed:
		return true
	}
	return false
}

func validTechnicalLevel(l TechnicalLevel) bool {
	switch l {
	case TechnicalMedicalScience, TechnicalOtherScience, TechnicalNonScience:
		return true
	}
	return false
}
