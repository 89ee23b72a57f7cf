// Package dummydb provides in-memory repositories for tests and local
// hacking. Not safe for production use.
package dummydb

import (
	"sync"

	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/session"
	"github.com/muddyapp/muddy/core/story"
	"github.com/muddyapp/muddy/core/submission"
)

type (
	DB struct {
		course     *courseTable
		session    *sessionTable
		submission *submissionTable
		story      *storyTable
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.ClassSession
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*submission.Submission
		// rate records keyed by sessionID + "\x00" + ipAddressHash
		rates map[string]*submission.RateLimitRecord
	}

	storyTable struct {
		sync.RWMutex
		table map[string]*story.UserStory
		// upvote ledger keyed by storyID + "\x00" + sessionToken
		upvotes map[string]bool
	}
)

func Open() (*DB, error) {
	db := &DB{
		course:  &courseTable{table: make(map[string]*course.Course)},
		session: &sessionTable{table: make(map[string]*session.ClassSession)},
		submission: &submissionTable{
			table: make(map[string]*submission.Submission),
			rates: make(map[string]*submission.RateLimitRecord),
		},
		story: &storyTable{
			table:   make(map[string]*story.UserStory),
			upvotes: make(map[string]bool),
		},
	}
	return db, nil
}

func pairKey(a, b string) string {
	return a + "\x00" + b
}
