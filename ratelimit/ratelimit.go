// Package ratelimit holds the bucket names and limits shared by the
// in-memory and Redis limiters.
package ratelimit

import "time"

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

const (
	BucketAvatarUpload = "avatar_upload"
	BucketTranscribe   = "transcribe"
	BucketProfileWrite = "profile_write"
	BucketDefault      = "default"
)

var fallback = Limit{Limit: 100, Window: time.Minute}

// DefaultLimits are per-subject limits for the proxied and write endpoints.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		BucketAvatarUpload: {Limit: 10, Window: time.Minute},
		BucketTranscribe:   {Limit: 20, Window: time.Minute},
		BucketProfileWrite: {Limit: 30, Window: time.Minute},
	}
}

// Lookup returns the limit for bucket, then the "default" bucket, then 100/min.
func Lookup(limits map[string]Limit, bucket string) Limit {
	if v, ok := limits[bucket]; ok {
		return v
	}
	if v, ok := limits[BucketDefault]; ok {
		return v
	}
	return fallback
}
