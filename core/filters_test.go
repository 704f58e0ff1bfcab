package core

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"starboard-bot/models"
)

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64 { return &i }

func groupOf(f ...*models.Filter) []*models.FilterGroup {
	return []*models.FilterGroup{{Filters: f}}
}

func baseFilterContext() *FilterContext {
	return &FilterContext{
		UserID:           1,
		UserRoles:        []int64{100, 200},
		ChannelChain:     []int64{30, 20, 10},
		Message:          &discordgo.Message{Content: "hello world"},
		MessageCreatedAt: time.Now().Add(-time.Hour),
		Now:              time.Now(),
	}
}

func TestEvaluateChecks(t *testing.T) {
	t.Run("role predicates", func(t *testing.T) {
		fc := baseFilterContext()
		check := &models.FilterCheck{UserHasAllRoles: []int64{100, 200}}
		assert.True(t, evaluateCheck(check, fc))

		check = &models.FilterCheck{UserHasAllRoles: []int64{100, 300}}
		assert.False(t, evaluateCheck(check, fc))

		check = &models.FilterCheck{UserHasAnyRoles: []int64{300, 200}}
		assert.True(t, evaluateCheck(check, fc))

		check = &models.FilterCheck{UserMissingAllRoles: []int64{100}}
		assert.False(t, evaluateCheck(check, fc))
	})

	t.Run("bot predicate", func(t *testing.T) {
		fc := baseFilterContext()
		assert.True(t, evaluateCheck(&models.FilterCheck{UserIsBot: boolPtr(false)}, fc))
		assert.False(t, evaluateCheck(&models.FilterCheck{UserIsBot: boolPtr(true)}, fc))
	})

	t.Run("channel predicates use only the head without thread expansion", func(t *testing.T) {
		fc := baseFilterContext()
		check := &models.FilterCheck{InChannels: []int64{20}}
		assert.False(t, evaluateCheck(check, fc))

		check = &models.FilterCheck{InChannels: []int64{20}, ExpandChannelThreads: true}
		assert.True(t, evaluateCheck(check, fc))

		check = &models.FilterCheck{NotInChannels: []int64{30}}
		assert.False(t, evaluateCheck(check, fc))
	})

	t.Run("message predicates fail without a message", func(t *testing.T) {
		fc := baseFilterContext()
		fc.Message = nil
		assert.False(t, evaluateCheck(&models.FilterCheck{MinLength: intPtr(1)}, fc))
		assert.False(t, evaluateCheck(&models.FilterCheck{MatchesRegex: strPtr("x")}, fc))
		// Predicates not needing the message still work.
		assert.True(t, evaluateCheck(&models.FilterCheck{UserHasAnyRoles: []int64{100}}, fc))
	})

	t.Run("length, attachments, regex", func(t *testing.T) {
		fc := baseFilterContext()
		assert.True(t, evaluateCheck(&models.FilterCheck{MinLength: intPtr(5), MaxLength: intPtr(20)}, fc))
		assert.False(t, evaluateCheck(&models.FilterCheck{MaxLength: intPtr(3)}, fc))
		assert.True(t, evaluateCheck(&models.FilterCheck{MatchesRegex: strPtr("^hello")}, fc))
		assert.False(t, evaluateCheck(&models.FilterCheck{NotMatchesRegex: strPtr("world")}, fc))
		assert.True(t, evaluateCheck(&models.FilterCheck{MaxAttachments: intPtr(0)}, fc))
	})

	t.Run("age bounds", func(t *testing.T) {
		fc := baseFilterContext()
		assert.True(t, evaluateCheck(&models.FilterCheck{MinAgeSeconds: int64Ptr(60)}, fc))
		assert.False(t, evaluateCheck(&models.FilterCheck{MaxAgeSeconds: int64Ptr(60)}, fc))
	})

	t.Run("voter predicates outside a vote are skipped", func(t *testing.T) {
		fc := baseFilterContext()
		fc.HasVoteContext = false
		check := &models.FilterCheck{VoterHasAllRoles: []int64{999}}
		assert.True(t, evaluateCheck(check, fc))
	})

	t.Run("voter predicates with unknown voter fail", func(t *testing.T) {
		fc := baseFilterContext()
		fc.HasVoteContext = true
		fc.VoterKnown = false
		check := &models.FilterCheck{VoterHasAllRoles: []int64{999}}
		assert.False(t, evaluateCheck(check, fc))
	})

	t.Run("voter predicates evaluate the voter roles", func(t *testing.T) {
		fc := baseFilterContext()
		fc.HasVoteContext = true
		fc.VoterKnown = true
		fc.VoterRoles = []int64{500}
		assert.True(t, evaluateCheck(&models.FilterCheck{VoterHasAnyRoles: []int64{500}}, fc))
		assert.False(t, evaluateCheck(&models.FilterCheck{VoterMissingAllRoles: []int64{500}}, fc))
	})
}

func TestEvaluateGroups(t *testing.T) {
	passing := &models.FilterCheck{UserHasAnyRoles: []int64{100}}
	failing := &models.FilterCheck{UserHasAnyRoles: []int64{999}}

	t.Run("all filters must pass", func(t *testing.T) {
		fc := baseFilterContext()
		groups := groupOf(
			&models.Filter{Checks: []*models.FilterCheck{passing}},
			&models.Filter{Checks: []*models.FilterCheck{failing}},
		)
		assert.False(t, EvaluateGroups(groups, fc))
	})

	t.Run("instant pass short-circuits the group", func(t *testing.T) {
		fc := baseFilterContext()
		groups := groupOf(
			&models.Filter{InstantPass: true, Checks: []*models.FilterCheck{passing}},
			&models.Filter{Checks: []*models.FilterCheck{failing}},
		)
		assert.True(t, EvaluateGroups(groups, fc))
	})

	t.Run("instant fail short-circuits the group", func(t *testing.T) {
		fc := baseFilterContext()
		groups := groupOf(
			&models.Filter{InstantFail: true, Checks: []*models.FilterCheck{failing}},
			&models.Filter{Checks: []*models.FilterCheck{passing}},
		)
		assert.False(t, EvaluateGroups(groups, fc))
	})

	t.Run("every group must pass", func(t *testing.T) {
		fc := baseFilterContext()
		groups := []*models.FilterGroup{
			{Filters: []*models.Filter{{Checks: []*models.FilterCheck{passing}}}},
			{Filters: []*models.Filter{{Checks: []*models.FilterCheck{failing}}}},
		}
		assert.False(t, EvaluateGroups(groups, fc))
	})

	t.Run("no groups passes", func(t *testing.T) {
		assert.True(t, EvaluateGroups(nil, baseFilterContext()))
	})
}
