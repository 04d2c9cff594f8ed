package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session (JTI).
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// SessionStartKey returns the cache key for a student's test-session start
// timestamp on one assessment.
func (r *CacheKeyStruct) SessionStartKey(assessmentID string, studentID int) string {
	return fmt.Sprintf("student:%d:assessment:%s:session_start", studentID, assessmentID)
}

// StudentAnswersKey returns the cache key for a student's buffered answers.
func (r *CacheKeyStruct) StudentAnswersKey(assessmentID string, studentID int) string {
	return fmt.Sprintf("student:%d:assessment:%s:answers", studentID, assessmentID)
}

// AssessmentPayloadKey returns the cache key for an assessment's student payload.
func (r *CacheKeyStruct) AssessmentPayloadKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:payload", assessmentID)
}

// AssessmentDurationKey returns the cache key for an assessment's duration.
func (r *CacheKeyStruct) AssessmentDurationKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:duration", assessmentID)
}

// AssessmentAnswerKey returns the cache key for an assessment's answer key.
func (r *CacheKeyStruct) AssessmentAnswerKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:key", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
