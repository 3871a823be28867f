package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// applyAwardScript adds ARGV[2] xp once per award id ARGV[1] and returns {applied, xp}.
var applyAwardScript = redis.NewScript(`
if redis.call('SADD', KEYS[2], ARGV[1]) == 1 then
	return {1, redis.call('HINCRBY', KEYS[1], 'xp', ARGV[2])}
end
return {0, tonumber(redis.call('HGET', KEYS[1], 'xp') or '0')}
`)

// ProfileStore keeps gamification state in Redis:
//
//	HINCRBY profile:{user} xp {amount}
//	SADD    profile:{user}:badges {badge}
//	SADD    profile:{user}:themes {theme}
//	SADD    profile:{user}:awards {award}
//
// Every mutation is a single atomic command or script.
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (domain.Profile, error) {
	xp, err := s.client.HGet(ctx, s.key(userID), "xp").Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Profile{}, fmt.Errorf("read xp: %w", err)
	}
	return s.withSets(ctx, userID, xp)
}

func (s *ProfileStore) AddXP(ctx context.Context, userID string, amount int) (domain.Profile, error) {
	xp, err := s.client.HIncrBy(ctx, s.key(userID), "xp", int64(amount)).Result()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("add xp: %w", err)
	}
	return s.withSets(ctx, userID, int(xp))
}

func (s *ProfileStore) ApplyAward(ctx context.Context, userID, awardID string, amount int) (domain.Profile, bool, error) {
	key := s.key(userID)
	res, err := applyAwardScript.Run(ctx, s.client, []string{key, key + ":awards"}, awardID, amount).Int64Slice()
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("apply award: %w", err)
	}
	if len(res) != 2 {
		return domain.Profile{}, false, fmt.Errorf("apply award: unexpected reply %v", res)
	}
	profile, err := s.withSets(ctx, userID, int(res[1]))
	if err != nil {
		return domain.Profile{}, false, err
	}
	return profile, res[0] == 1, nil
}

func (s *ProfileStore) AddBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	n, err := s.client.SAdd(ctx, s.key(userID)+":badges", badgeID).Result()
	if err != nil {
		return false, fmt.Errorf("add badge: %w", err)
	}
	return n == 1, nil
}

func (s *ProfileStore) AddCompletedTheme(ctx context.Context, userID, themeID string) (bool, error) {
	n, err := s.client.SAdd(ctx, s.key(userID)+":themes", themeID).Result()
	if err != nil {
		return false, fmt.Errorf("add completed theme: %w", err)
	}
	return n == 1, nil
}

// withSets completes a profile whose XP is already known with its badge and theme sets.
func (s *ProfileStore) withSets(ctx context.Context, userID string, xp int) (domain.Profile, error) {
	key := s.key(userID)
	var badges, themes *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		badges = pipe.SMembers(ctx, key+":badges")
		themes = pipe.SMembers(ctx, key+":themes")
		return nil
	})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile sets: %w", err)
	}

	profile := domain.Profile{UserID: userID, XP: xp, Badges: badges.Val(), CompletedThemes: themes.Val()}
	sort.Strings(profile.Badges)
	sort.Strings(profile.CompletedThemes)
	return profile, nil
}

func (s *ProfileStore) key(userID string) string {
	return "profile:" + userID
}
