package domain

import "time"

// Project represents a GitLab project discovered in a group hierarchy
type Project struct {
	ID                int
	Name              string
	PathWithNamespace string
	DefaultBranch     string
	WebURL            string
	LastActivityAt    *time.Time
}

// Group represents a GitLab group or subgroup
type Group struct {
	ID       int
	Name     string
	FullPath string
}
