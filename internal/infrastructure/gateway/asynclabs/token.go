package asynclabs

import "context"

// StaticTokenSource returns the same bearer token for every call.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}
