package storage

import (
	"context"
	"messenger/domain"
	"messenger/errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFriendRepository(t *testing.T) *FriendRepository {
	t.Helper()
	repo, err := NewFriendRepository(openTestDB(t), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestFriendRepository_Pending_Is_Unique_Per_Pair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newFriendRepository(t)

	_, err := repo.CreatePending(ctx, 1, 2)
	req.NoError(err)

	// Same direction and reverse direction are both duplicates
	_, err = repo.CreatePending(ctx, 1, 2)
	req.ErrorIs(err, errors.ErrDuplicatePending)
	_, err = repo.CreatePending(ctx, 2, 1)
	req.ErrorIs(err, errors.ErrDuplicatePending)
	req.Equal(errors.KindConflict, errors.KindOf(err))
}

func TestFriendRepository_Concurrent_Requests_Create_One_Edge(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newFriendRepository(t)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := domain.UserID(1), domain.UserID(2)
			if i%2 == 1 {
				from, to = to, from
			}
			if _, err := repo.CreatePending(ctx, from, to); err == nil {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(int32(1), created.Load())
	edges, err := repo.EdgesOf(ctx, 1)
	req.NoError(err)
	req.Len(edges, 1)
}

func TestFriendRepository_Accept_Only_By_Target(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newFriendRepository(t)

	// Given 2 asked 1
	_, err := repo.CreatePending(ctx, 2, 1)
	req.NoError(err)

	// The requester cannot accept their own request
	_, err = repo.AcceptPending(ctx, 2, 1)
	req.ErrorIs(err, errors.ErrRequestNotFound)

	// The target can
	edge, err := repo.AcceptPending(ctx, 1, 2)
	req.NoError(err)
	req.True(edge.Accepted)

	// Accepting twice fails, the pending entry is gone
	_, err = repo.AcceptPending(ctx, 1, 2)
	req.ErrorIs(err, errors.ErrRequestNotFound)

	// And the friendship is visible from both sides
	for _, user := range []domain.UserID{1, 2} {
		edges, err := repo.EdgesOf(ctx, user)
		req.NoError(err)
		req.Len(edges, 1)
		req.True(edges[0].Accepted)
	}
}

func TestFriendRepository_Re_Request_After_Accept_Is_Allowed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newFriendRepository(t)

	_, err := repo.CreatePending(ctx, 1, 2)
	req.NoError(err)
	_, err = repo.AcceptPending(ctx, 2, 1)
	req.NoError(err)

	// No deduplication against an accepted edge
	_, err = repo.CreatePending(ctx, 1, 2)
	req.NoError(err)
	edges, err := repo.EdgesOf(ctx, 2)
	req.NoError(err)
	req.Len(edges, 2)
}
