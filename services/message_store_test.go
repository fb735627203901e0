package services

import (
	"context"
	"messenger/domain"
	"messenger/errors"
	"messenger/infrastructure/storage"
	"messenger/mocks"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMessageStore_AppendDirect_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	directory := mocks.NewMockIDirectory(ctrl)
	repo := mocks.NewMockIMessageRepository(ctrl)
	store := NewMessageStore(testLogger(), directory, repo, 0)
	ctx := context.Background()

	t.Run("should reject an empty body without touching storage", func(t *testing.T) {
		repo.EXPECT().StoreDirect(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := store.AppendDirect(ctx, 1, 2, domain.Body{})

		require.ErrorIs(t, err, errors.ErrEmptyMessage)
	})

	t.Run("should reject an unknown receiver", func(t *testing.T) {
		directory.EXPECT().Lookup(gomock.Any(), domain.UserID(1)).Return(alice, nil)
		directory.EXPECT().Lookup(gomock.Any(), domain.UserID(2)).Return(domain.User{}, errors.ErrUserNotFound)
		repo.EXPECT().StoreDirect(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := store.AppendDirect(ctx, 1, 2, domain.TextBody("hi"))

		require.ErrorIs(t, err, errors.ErrUserNotFound)
	})

	t.Run("should surface storage failures as unavailable", func(t *testing.T) {
		directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(alice, nil).Times(2)
		repo.EXPECT().StoreDirect(gomock.Any(), domain.UserID(1), domain.UserID(2), gomock.Any()).
			Return(domain.DirectMessage{}, errors.Unavailable(context.DeadlineExceeded))

		_, err := store.AppendDirect(ctx, 1, 2, domain.TextBody("hi"))

		require.ErrorIs(t, err, errors.ErrUnavailable)
		require.Equal(t, errors.KindUnavailable, errors.KindOf(err))
	})
}

func TestMessageStore_History_Passes_Limit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	directory := mocks.NewMockIDirectory(ctrl)
	repo := mocks.NewMockIMessageRepository(ctrl)
	store := NewMessageStore(testLogger(), directory, repo, 50)

	directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(alice, nil).Times(2)
	repo.EXPECT().History(gomock.Any(), domain.UserID(1), domain.UserID(2), 50).Return(nil, nil)
	repo.EXPECT().GroupHistory(gomock.Any(), domain.GroupID(3), 50).Return(nil, nil)

	_, err := store.History(context.Background(), 1, 2)
	req.NoError(err)
	_, err = store.GroupHistory(context.Background(), 3)
	req.NoError(err)
}

func TestMessageStore_Scenario_A(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	repo, err := storage.NewMessageRepository(db, testLogger())
	req.NoError(err)
	defer repo.Close()
	store := NewMessageStore(testLogger(), seededDirectory(t, db, alice, bob), repo, 0)

	msg, err := store.AppendDirect(ctx, alice.ID, bob.ID, domain.TextBody("hi"))
	req.NoError(err)
	req.NotZero(msg.ID)

	history, err := store.History(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hi", lo.FromPtr(history[0].Text))
	req.Nil(history[0].File)
}

func TestMessageStore_Scenario_C_Non_Member_Appends_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	repo, err := storage.NewMessageRepository(db, testLogger())
	req.NoError(err)
	defer repo.Close()
	groups, err := storage.NewGroupRepository(db, testLogger())
	req.NoError(err)
	defer groups.Close()
	store := NewMessageStore(testLogger(), seededDirectory(t, db, alice, bob, carol), repo, 0)

	group, err := groups.Create(ctx, alice.ID, "Team")
	req.NoError(err)
	_, err = store.AppendGroup(ctx, group.ID, alice.ID, domain.TextBody("first"))
	req.NoError(err)

	_, err = store.AppendGroup(ctx, group.ID, carol.ID, domain.TextBody("hi"))
	req.ErrorIs(err, errors.ErrNotAMember)

	history, err := store.GroupHistory(ctx, group.ID)
	req.NoError(err)
	req.Len(history, 1)
}
