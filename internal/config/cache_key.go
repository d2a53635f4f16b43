package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RevokedTokenKey returns the key marking a JWT (by jti) as logged out.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// AuthRateLimitKey returns the fixed-window counter key for an IP.
func (r *CacheKeyStruct) AuthRateLimitKey(ip string, window int64) string {
	return fmt.Sprintf("ratelimit:auth:%s:%d", ip, window)
}

// CertificateDispatchLockKey returns the mutex key held while an event's certificates are being sent.
func (r *CacheKeyStruct) CertificateDispatchLockKey(eventID string) string {
	return fmt.Sprintf("event:%s:certificates:lock", eventID)
}

// CertificateProgressChannel returns the PubSub channel carrying per-student dispatch progress.
func (r *CacheKeyStruct) CertificateProgressChannel(eventID string) string {
	return fmt.Sprintf("event:%s:certificates", eventID)
}

// UserNotificationChannel returns the PubSub channel ("room") of a single user.
func (r *CacheKeyStruct) UserNotificationChannel(userType string, userID int) string {
	return fmt.Sprintf("notify:user:%s:%d", userType, userID)
}

// BroadcastNotificationChannel is the PubSub channel every connected client listens to.
func (r *CacheKeyStruct) BroadcastNotificationChannel() string {
	return "notify:broadcast"
}

var CacheKey = NewCacheKeyStruct()
