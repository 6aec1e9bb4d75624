package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/notify"
	"github.com/ehving/noticesystem-sub000/internal/notify/mocks"
)

func TestRateLimited_Delegates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockNotifier(ctrl)
	ticket := &entity.ConflictTicket{ID: "c-1"}

	sendErr := errors.New("smtp down")
	gomock.InOrder(
		next.EXPECT().SendConflictAlert(gomock.Any(), ticket, gomock.Nil()).Return(nil),
		next.EXPECT().SendConflictAlert(gomock.Any(), ticket, gomock.Nil()).Return(sendErr),
	)

	n := notify.NewRateLimited(next, 0, 0)
	require.NoError(t, n.SendConflictAlert(context.Background(), ticket, nil))
	assert.ErrorIs(t, n.SendConflictAlert(context.Background(), ticket, nil), sendErr)
}

func TestRateLimited_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockNotifier(ctrl)
	next.EXPECT().SendConflictAlert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	n := notify.NewRateLimited(next, 0.001, 1)
	require.NoError(t, n.SendConflictAlert(context.Background(), &entity.ConflictTicket{ID: "c-1"}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.SendConflictAlert(ctx, &entity.ConflictTicket{ID: "c-2"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification rate limit")
}
