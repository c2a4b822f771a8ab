package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUserRateLimited   = errors.New("user rate limit exceeded")
	ErrDomainRateLimited = errors.New("domain rate limit exceeded")
	ErrWatchNotFound     = errors.New("watch not found")
	ErrSiteBlocked       = errors.New("site refused the request")
)
