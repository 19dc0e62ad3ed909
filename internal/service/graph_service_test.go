package service

import (
	"context"
	"math/rand"
	"testing"

	"pulse/internal/featureflags"
	"pulse/internal/models"
	"pulse/internal/repository"
	"pulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub overrides selected UserRepository methods on top of a real one.
type userRepoStub struct {
	repository.UserRepository
	updateFollowEdgeFn func(context.Context, int64, int64) (*repository.FollowEdge, error)
}

func (s *userRepoStub) UpdateFollowEdge(ctx context.Context, actorID, targetID int64) (*repository.FollowEdge, error) {
	if s.updateFollowEdgeFn != nil {
		return s.updateFollowEdgeFn(ctx, actorID, targetID)
	}
	return s.UserRepository.UpdateFollowEdge(ctx, actorID, targetID)
}

func assertSymmetric(t *testing.T, env *testEnv) {
	t.Helper()
	var users []models.User
	require.NoError(t, env.db.Find(&users).Error)
	byID := map[int64]models.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, u := range users {
		for _, other := range users {
			if u.ID == other.ID {
				continue
			}
			assert.Equal(t, u.Following.Contains(other.ID), byID[other.ID].Followers.Contains(u.ID),
				"%s→%s edge must be symmetric", u.Username, other.Username)
		}
	}
}

func TestGraphService_Follow(t *testing.T) {
	env := newTestEnv(t)
	svc := env.graph()
	ctx := context.Background()

	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")

	res, err := svc.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.Nil(t, res.Warning)
	assert.Equal(t, b.ID, res.Profile.ID)
	assert.Equal(t, 1, res.Profile.FollowersCount)
	assert.True(t, res.Profile.IsFollowing)

	following, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	res, err = svc.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, res.Following)
	assert.Equal(t, 0, res.Profile.FollowersCount)
	assert.False(t, res.Profile.IsFollowing)

	assertSymmetric(t, env)
}

func TestGraphService_Follow_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := env.graph()
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")

	_, err := svc.Follow(ctx, a.ID, a.ID)
	assert.True(t, models.HasCode(err, models.CodeInvalidOperation))

	_, err = svc.Follow(ctx, a.ID, 31337)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.Follow(ctx, 31337, a.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestGraphService_Follow_SymmetryUnderRandomSequences(t *testing.T) {
	env := newTestEnv(t)
	svc := env.graph()
	ctx := context.Background()

	var users []*models.User
	for _, name := range []string{"u0", "u1", "u2", "u3", "u4"} {
		users = append(users, testutil.CreateUser(t, env.db, name))
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 60; i++ {
		actor := users[rng.Intn(len(users))]
		target := users[rng.Intn(len(users))]
		res, err := svc.Follow(ctx, actor.ID, target.ID)
		if actor.ID == target.ID {
			assert.True(t, models.HasCode(err, models.CodeInvalidOperation))
			continue
		}
		require.NoError(t, err)
		assert.Nil(t, res.Warning)
	}

	assertSymmetric(t, env)
}

func TestGraphService_Follow_RepairsAsymmetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")

	// Simulate a partial write: only the actor's side lands.
	stub := &userRepoStub{
		UserRepository: env.users,
		updateFollowEdgeFn: func(ctx context.Context, actorID, targetID int64) (*repository.FollowEdge, error) {
			a.Following = a.Following.Add(b.ID)
			require.NoError(t, env.db.Model(a).Select("Following").Updates(a).Error)
			return &repository.FollowEdge{Following: true, Actor: a, Target: b}, nil
		},
	}
	svc := NewGraphService(stub, env.flags)

	res, err := svc.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Warning)
	assert.Equal(t, models.CodeConsistencyWarning, res.Warning.Code)
	assert.True(t, res.Following)
	assert.Equal(t, 1, res.Profile.FollowersCount, "profile reflects the repaired state")

	assertSymmetric(t, env)
}

func TestGraphService_Follow_VerificationDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")

	verified := false
	stub := &userRepoStub{UserRepository: env.users}
	svc := NewGraphService(&getByIDsSpy{userRepoStub: stub, called: &verified}, featureflags.NewManager("follow_verify=off"))

	res, err := svc.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.False(t, verified, "no verification read when the flag is off")
}

type getByIDsSpy struct {
	*userRepoStub
	called *bool
}

func (s *getByIDsSpy) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	*s.called = true
	return s.userRepoStub.GetByIDs(ctx, ids)
}

// racingRepo commits a follow right after the first unlocked read returns,
// the way a concurrent request could between verification and repair.
type racingRepo struct {
	*userRepoStub
	race func()
}

func (r *racingRepo) afterRead() {
	if r.race != nil {
		r.race()
		r.race = nil
	}
}

func (r *racingRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := r.userRepoStub.GetByID(ctx, id)
	r.afterRead()
	return user, err
}

func (r *racingRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	users, err := r.userRepoStub.GetByIDs(ctx, ids)
	r.afterRead()
	return users, err
}

func TestGraphService_VerifyPair_KeepsConcurrentFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	c := testutil.CreateUser(t, env.db, "c")

	// a follows b but b's followers never recorded it.
	a.Following = a.Following.Add(b.ID)
	require.NoError(t, env.db.Model(a).Select("Following").Updates(a).Error)

	repo := &racingRepo{
		userRepoStub: &userRepoStub{UserRepository: env.users},
		race: func() {
			_, err := env.users.UpdateFollowEdge(ctx, c.ID, b.ID)
			require.NoError(t, err)
		},
	}
	svc := NewGraphService(repo, env.flags)

	warning, err := svc.VerifyPair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, models.CodeConsistencyWarning, warning.Code)

	stored, err := env.users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Followers.Contains(a.ID), "repaired edge")
	assert.True(t, stored.Followers.Contains(c.ID), "follow committed during the audit survives")
	assertSymmetric(t, env)
}

func TestGraphService_VerifyUser_KeepsConcurrentFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	c := testutil.CreateUser(t, env.db, "c")

	// b lists a as a follower although a never followed b.
	b.Followers = b.Followers.Add(a.ID)
	require.NoError(t, env.db.Model(b).Select("Followers").Updates(b).Error)

	repo := &racingRepo{
		userRepoStub: &userRepoStub{UserRepository: env.users},
		race: func() {
			_, err := env.users.UpdateFollowEdge(ctx, b.ID, c.ID)
			require.NoError(t, err)
		},
	}
	svc := NewGraphService(repo, env.flags)

	warnings, err := svc.VerifyUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, warnings, 1)

	stored, err := env.users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.Followers.Contains(a.ID), "stale follower removed")
	assert.True(t, stored.Following.Contains(c.ID), "follow committed during the audit survives")
	assertSymmetric(t, env)
}

func TestGraphService_VerifyUser(t *testing.T) {
	env := newTestEnv(t)
	svc := env.graph()
	ctx := context.Background()

	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	c := testutil.CreateUser(t, env.db, "c")
	testutil.Follow(t, env.db, a, b)

	// c claims a as follower; a lists a ghost user it follows.
	c.Followers = c.Followers.Add(a.ID)
	require.NoError(t, env.db.Model(c).Select("Followers").Updates(c).Error)
	a.Following = a.Following.Add(999)
	require.NoError(t, env.db.Model(a).Select("Following").Updates(a).Error)
	a.Followers = a.Followers.Add(c.ID)
	require.NoError(t, env.db.Model(a).Select("Followers").Updates(a).Error)

	warnings, err := svc.VerifyUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, warnings, 2, "ghost edge and a↔c asymmetry")
	for _, w := range warnings {
		assert.Equal(t, models.CodeConsistencyWarning, w.Code)
	}
	assertSymmetric(t, env)

	warnings, err = svc.VerifyUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings, "second audit finds nothing")

	pairWarning, err := svc.VerifyPair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, pairWarning)
}

func TestGraphService_Discovery(t *testing.T) {
	env := newTestEnv(t)
	svc := env.graph()
	ctx := context.Background()

	viewer := testutil.CreateUser(t, env.db, "viewer")
	star := testutil.CreateUser(t, env.db, "star")
	fan := testutil.CreateUser(t, env.db, "fan")
	friend := testutil.CreateUser(t, env.db, "friend")
	testutil.Follow(t, env.db, fan, star)
	testutil.Follow(t, env.db, friend, star)
	testutil.Follow(t, env.db, viewer, friend)

	suggestions, err := svc.Suggestions(ctx, viewer.ID, 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, star.ID, suggestions[0].ID)
	for _, s := range suggestions {
		assert.NotEqual(t, viewer.ID, s.ID)
		assert.NotEqual(t, friend.ID, s.ID)
		assert.False(t, s.IsFollowing)
	}

	found, err := svc.SearchUsers(ctx, viewer.ID, "  FRI ", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].IsFollowing)

	found, err = svc.SearchUsers(ctx, viewer.ID, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, found)

	profile, err := svc.GetProfile(ctx, viewer.ID, "star")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.FollowersCount)
	assert.False(t, profile.IsFollowing)

	_, err = svc.GetProfile(ctx, viewer.ID, "nobody")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
