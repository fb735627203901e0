package services

import (
	"context"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"messenger/infrastructure/storage"
	"messenger/mocks"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	alice = domain.User{ID: 1, DisplayName: "Alice"}
	bob   = domain.User{ID: 2, DisplayName: "Bob"}
	carol = domain.User{ID: 3, DisplayName: "Carol"}
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seededDirectory returns a badger backed directory holding users.
func seededDirectory(t *testing.T, db *badger.DB, users ...domain.User) *storage.UserRepository {
	t.Helper()
	directory := storage.NewUserRepository(db)
	for _, u := range users {
		require.NoError(t, directory.Save(context.Background(), u))
	}
	return directory
}

func TestFriendGraph_RequestFriend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	directory := mocks.NewMockIDirectory(ctrl)
	repo := mocks.NewMockIFriendRepository(ctrl)
	graph := NewFriendGraph(testLogger(), directory, repo)
	ctx := context.Background()

	t.Run("should refuse a request to oneself", func(t *testing.T) {
		req := require.New(t)
		repo.EXPECT().CreatePending(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := graph.RequestFriend(ctx, 1, 1)

		req.ErrorIs(err, errors.ErrSelfReference)
	})

	t.Run("should fail fast when the target does not exist", func(t *testing.T) {
		req := require.New(t)
		directory.EXPECT().Lookup(gomock.Any(), domain.UserID(1)).Return(alice, nil)
		directory.EXPECT().Lookup(gomock.Any(), domain.UserID(9)).Return(domain.User{}, errors.ErrUserNotFound)
		repo.EXPECT().CreatePending(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := graph.RequestFriend(ctx, 1, 9)

		req.ErrorIs(err, errors.ErrUserNotFound)
	})

	t.Run("should propagate a duplicate pending request", func(t *testing.T) {
		req := require.New(t)
		directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(alice, nil).Times(2)
		repo.EXPECT().CreatePending(gomock.Any(), domain.UserID(1), domain.UserID(2)).
			Return(domain.FriendEdge{}, errors.ErrDuplicatePending)

		_, err := graph.RequestFriend(ctx, 1, 2)

		req.ErrorIs(err, errors.ErrDuplicatePending)
	})
}

func TestFriendGraph_RequestFriendByName_Resolves_Names(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	repo, err := storage.NewFriendRepository(db, testLogger())
	req.NoError(err)
	graph := NewFriendGraph(testLogger(), seededDirectory(t, db, alice, bob), repo)

	edge, err := graph.RequestFriendByName(ctx, "Alice", "Bob")
	req.NoError(err)
	req.Equal(alice.ID, edge.UserID)
	req.Equal(bob.ID, edge.FriendID)

	_, err = graph.RequestFriendByName(ctx, "Alice", "Nobody")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestFriendGraph_Accept_Direction_And_Listings(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	repo, err := storage.NewFriendRepository(db, testLogger())
	req.NoError(err)
	graph := NewFriendGraph(testLogger(), seededDirectory(t, db, alice, bob, carol), repo)

	// Given Bob asked Alice and Alice asked Carol
	_, err = graph.RequestFriend(ctx, bob.ID, alice.ID)
	req.NoError(err)
	_, err = graph.RequestFriend(ctx, alice.ID, carol.ID)
	req.NoError(err)

	// Then Alice sees one incoming and one outgoing request
	incoming, err := graph.ListIncomingPending(ctx, alice.ID)
	req.NoError(err)
	req.Len(incoming, 1)
	req.Equal(bob, incoming[0].Peer)
	outgoing, err := graph.ListOutgoingPending(ctx, alice.ID)
	req.NoError(err)
	req.Len(outgoing, 1)
	req.Equal(carol, outgoing[0].Peer)

	// Bob cannot accept his own request
	_, err = graph.AcceptFriend(ctx, bob.ID, alice.ID)
	req.ErrorIs(err, errors.ErrRequestNotFound)

	// Alice accepts
	_, err = graph.AcceptFriend(ctx, alice.ID, bob.ID)
	req.NoError(err)

	friendsOfAlice, err := graph.ListFriends(ctx, alice.ID)
	req.NoError(err)
	req.Equal([]domain.User{bob}, friendsOfAlice)
	friendsOfBob, err := graph.ListFriends(ctx, bob.ID)
	req.NoError(err)
	req.Equal([]domain.User{alice}, friendsOfBob)

	incoming, err = graph.ListIncomingPending(ctx, alice.ID)
	req.NoError(err)
	req.Empty(incoming)
}

func TestFriendGraph_Concurrent_Duplicate_Requests_Leave_One_Pending_Edge(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	repo, err := storage.NewFriendRepository(db, testLogger())
	req.NoError(err)
	graph := NewFriendGraph(testLogger(), seededDirectory(t, db, alice, bob), repo)

	var created, duplicates atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := alice.ID, bob.ID
			if i%2 == 0 {
				from, to = to, from
			}
			_, err := graph.RequestFriend(ctx, from, to)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, errors.ErrDuplicatePending):
				duplicates.Add(1)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(int32(1), created.Load())
	req.Equal(int32(19), duplicates.Load())
	pending, err := graph.ListIncomingPending(ctx, alice.ID)
	req.NoError(err)
	outgoing, err := graph.ListOutgoingPending(ctx, alice.ID)
	req.NoError(err)
	req.Len(append(pending, outgoing...), 1)
}
