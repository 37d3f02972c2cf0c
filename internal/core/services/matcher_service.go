package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// MatcherService selects an assignee for a classification by skill
// overlap, falling back to the first admin.
type MatcherService struct {
	userRepo ports.UserRepository
}

var _ ports.ModeratorMatcher = (*MatcherService)(nil)

// NewMatcherService creates a new matcher service.
func NewMatcherService(userRepo ports.UserRepository) *MatcherService {
	return &MatcherService{userRepo: userRepo}
}

// FindAssignee picks the moderator whose skills best overlap the
// classification's related skills. Candidates are ranked by overlap
// count descending, then user id ascending, so the choice is stable
// across store implementations. With no classification, no skills, or
// no matching moderator, the first admin is the fallback; with no admin
// either the ticket stays unassigned and (nil, nil) is returned.
func (s *MatcherService) FindAssignee(ctx context.Context, classification *domain.Classification) (*domain.User, error) {
	if !classification.HasSkills() {
		return s.firstAdmin(ctx)
	}

	moderators, err := s.userRepo.ModeratorsMatchingSkills(ctx, classification.RelatedSkills)
	if err != nil {
		return nil, err
	}
	if len(moderators) == 0 {
		return s.firstAdmin(ctx)
	}

	return bestMatch(moderators, classification.RelatedSkills), nil
}

func (s *MatcherService) firstAdmin(ctx context.Context) (*domain.User, error) {
	admin, err := s.userRepo.FirstAdmin(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// No admin configured: unassigned is a valid outcome.
			return nil, nil
		}
		return nil, err
	}
	return admin, nil
}

// bestMatch ranks candidates by skill-overlap count descending, then by
// id ascending.
func bestMatch(candidates []*domain.User, terms []string) *domain.User {
	type ranked struct {
		user    *domain.User
		overlap int
	}

	rankings := make([]ranked, 0, len(candidates))
	for _, candidate := range candidates {
		rankings = append(rankings, ranked{
			user:    candidate,
			overlap: overlapCount(candidate.Skills, terms),
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].overlap != rankings[j].overlap {
			return rankings[i].overlap > rankings[j].overlap
		}
		return rankings[i].user.ID.String() < rankings[j].user.ID.String()
	})

	return rankings[0].user
}

// overlapCount counts the candidate's skills that contain (or are
// contained by) any requested term, case-insensitive.
func overlapCount(skills, terms []string) int {
	count := 0
	for _, skill := range skills {
		lowerSkill := strings.ToLower(skill)
		for _, term := range terms {
			lowerTerm := strings.ToLower(term)
			if strings.Contains(lowerSkill, lowerTerm) || strings.Contains(lowerTerm, lowerSkill) {
				count++
				break
			}
		}
	}
	return count
}
