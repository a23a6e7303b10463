// Package dashboard aggregates registry and attendance data into the
// numbers the role dashboards display. Every read is scoped to the
// caller's resolved city.
package dashboard

import (
	"context"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/group"
	"github.com/eglise-connect/platform/internal/member"
)

// Overview is the headline block shared by all dashboards
type Overview struct {
	City     string `json:"city"`
	Members  int    `json:"members"`
	Visitors int    `json:"visitors"`
	Groups   int    `json:"groups"`
}

// CohortChart is the member count per arrival month
type CohortChart struct {
	City    string         `json:"city"`
	Cohorts map[string]int `json:"cohorts"`
}

// Service computes dashboard aggregates
type Service struct {
	members *member.Repository
	groups  *group.Repository
}

// NewService creates a new dashboard service
func NewService(members *member.Repository, groups *group.Repository) *Service {
	return &Service{members: members, groups: groups}
}

// Overview returns the headline numbers for a city scope. CityAll
// aggregates every city.
func (s *Service) Overview(ctx context.Context, city string) (*Overview, error) {
	memberCounts, err := s.members.CountByCity(ctx, member.KindMember)
	if err != nil {
		return nil, err
	}

	visitorCounts, err := s.members.CountByCity(ctx, member.KindVisitor)
	if err != nil {
		return nil, err
	}

	_, groupTotal, err := s.groups.List(ctx, group.ListGroupsFilter{City: city, Limit: 1})
	if err != nil {
		return nil, err
	}

	o := &Overview{City: city, Groups: groupTotal}
	if city == "" || city == access.CityAll {
		for _, n := range memberCounts {
			o.Members += n
		}
		for _, n := range visitorCounts {
			o.Visitors += n
		}
	} else {
		o.Members = memberCounts[city]
		o.Visitors = visitorCounts[city]
	}

	return o, nil
}

// Cohorts returns the per-month member counts for a city scope
func (s *Service) Cohorts(ctx context.Context, city string) (*CohortChart, error) {
	counts, err := s.members.CountByArrivalMonth(ctx, city)
	if err != nil {
		return nil, err
	}

	return &CohortChart{City: city, Cohorts: counts}, nil
}
