package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
)

func TestRouterRegister(t *testing.T) {
	reg := Registration{Key: "reminder-1-mon", FireAt: time.Now().Add(time.Hour)}

	tests := []struct {
		name    string
		mode    Mode
		setup   func(exact, inexact *MockService)
		wantErr error
	}{
		{
			name: "exact goes to exact backend",
			mode: ModeExact,
			setup: func(exact, inexact *MockService) {
				gomock.InOrder(
					exact.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil),
					inexact.EXPECT().Cancel(gomock.Any(), reg.Key).Return(nil),
				)
			},
		},
		{
			name: "inexact goes to inexact backend",
			mode: ModeInexact,
			setup: func(exact, inexact *MockService) {
				gomock.InOrder(
					inexact.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil),
					exact.EXPECT().Cancel(gomock.Any(), reg.Key).Return(nil),
				)
			},
		},
		{
			name: "denial is passed through untouched",
			mode: ModeExact,
			setup: func(exact, inexact *MockService) {
				exact.EXPECT().Register(gomock.Any(), gomock.Any()).Return(ErrRegistrationDenied)
			},
			wantErr: ErrRegistrationDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			exact := NewMockService(ctrl)
			inexact := NewMockService(ctrl)
			tt.setup(exact, inexact)

			r := NewRouter(exact, inexact)
			reg := reg
			reg.Mode = tt.mode

			err := r.Register(context.Background(), reg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRouterCancelJoinsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	exact := NewMockService(ctrl)
	inexact := NewMockService(ctrl)

	boom := errors.New("backend down")
	exact.EXPECT().Cancel(gomock.Any(), "reminder-2-tue").Return(nil)
	inexact.EXPECT().Cancel(gomock.Any(), "reminder-2-tue").Return(boom)

	err := NewRouter(exact, inexact).Cancel(context.Background(), "reminder-2-tue")
	if !errors.Is(err, boom) {
		t.Errorf("Cancel() error = %v, want %v", err, boom)
	}
}

func TestRouterSharedBackendCancelsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockService(ctrl)

	backend.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	backend.EXPECT().Cancel(gomock.Any(), "reminder-5-sat").Return(nil).Times(1)

	r := NewRouter(backend, backend)
	ctx := context.Background()

	if err := r.Register(ctx, Registration{Key: "reminder-5-sat", Mode: ModeInexact}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Cancel(ctx, "reminder-5-sat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
