package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/kyral/bandrush/internal/domain/auth"
	"github.com/kyral/bandrush/internal/domain/model"
)

func TestSessionManager_CreateSession(t *testing.T) {
	Convey("Given a session manager", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		mgr := auth.NewSessionManager(
			auth.WithClock(clock),
			auth.WithDurationWindow(5*time.Minute, 24*time.Hour),
		)

		Convey("When an owner creates a session within the window", func() {
			session, err := mgr.CreateSession(ctx, "alice", "key-1", time.Hour,
				model.TargetGame, []string{model.SelectorAddBand, model.SelectorCashOut}, 0)

			Convey("Then the session is scoped and timed", func() {
				So(err, ShouldBeNil)
				So(session.Owner, ShouldEqual, "alice")
				So(session.SessionKey, ShouldEqual, "key-1")
				So(session.Expiry.Equal(clock.Now().Add(time.Hour)), ShouldBeTrue)
				So(session.AllowedSelectors, ShouldContainKey, model.SelectorAddBand)
			})

			Convey("And a second live session is refused", func() {
				_, err := mgr.CreateSession(ctx, "alice", "key-2", time.Hour,
					model.TargetGame, []string{model.SelectorAddBand}, 0)
				So(errors.Is(err, auth.ErrSessionActive), ShouldBeTrue)
			})

			Convey("And after expiry a new session is allowed", func() {
				clock.Advance(2 * time.Hour)
				_, err := mgr.CreateSession(ctx, "alice", "key-2", time.Hour,
					model.TargetGame, []string{model.SelectorAddBand}, 0)
				So(err, ShouldBeNil)
			})

			Convey("And revoking frees the slot immediately", func() {
				So(mgr.RevokeSession(ctx, "alice"), ShouldBeNil)
				_, err := mgr.CreateSession(ctx, "alice", "key-2", time.Hour,
					model.TargetGame, []string{model.SelectorAddBand}, 0)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the duration is out of range", func() {
			_, err := mgr.CreateSession(ctx, "alice", "key-1", time.Minute,
				model.TargetGame, []string{model.SelectorAddBand}, 0)
			So(errors.Is(err, auth.ErrDurationOutOfRange), ShouldBeTrue)

			_, err = mgr.CreateSession(ctx, "alice", "key-1", 25*time.Hour,
				model.TargetGame, []string{model.SelectorAddBand}, 0)
			So(errors.Is(err, auth.ErrDurationOutOfRange), ShouldBeTrue)
		})

		Convey("When the selector set is empty", func() {
			_, err := mgr.CreateSession(ctx, "alice", "key-1", time.Hour,
				model.TargetGame, nil, 0)
			So(errors.Is(err, auth.ErrNoSelectors), ShouldBeTrue)
		})

		Convey("When owner or key is empty", func() {
			_, err := mgr.CreateSession(ctx, "", "key-1", time.Hour,
				model.TargetGame, []string{model.SelectorAddBand}, 0)
			So(errors.Is(err, auth.ErrInvalidKey), ShouldBeTrue)

			_, err = mgr.CreateSession(ctx, "alice", "", time.Hour,
				model.TargetGame, []string{model.SelectorAddBand}, 0)
			So(errors.Is(err, auth.ErrInvalidKey), ShouldBeTrue)
		})

		Convey("When revoking without a session", func() {
			So(errors.Is(mgr.RevokeSession(ctx, "alice"), auth.ErrNoSession), ShouldBeTrue)
		})
	})
}

func TestSessionManager_Authorize(t *testing.T) {
	Convey("Given a session scoped to add_band on game 7", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		mgr := auth.NewSessionManager(auth.WithClock(clock))
		_, err := mgr.CreateSession(ctx, "alice", "key-1", time.Hour,
			model.TargetGame, []string{model.SelectorAddBand}, 7)
		So(err, ShouldBeNil)

		call := auth.Call{Selector: model.SelectorAddBand, GameID: 7}

		Convey("Then an in-scope call passes", func() {
			So(mgr.Authorize(ctx, "key-1", "alice", model.TargetGame, call), ShouldBeNil)
		})

		Convey("Then each scope violation fails with its own error", func() {
			err := mgr.Authorize(ctx, "key-1", "bob", model.TargetGame, call)
			So(errors.Is(err, auth.ErrNoSession), ShouldBeTrue)

			err = mgr.Authorize(ctx, "wrong-key", "alice", model.TargetGame, call)
			So(errors.Is(err, auth.ErrNotSessionKey), ShouldBeTrue)

			err = mgr.Authorize(ctx, "key-1", "alice", "vault", call)
			So(errors.Is(err, auth.ErrWrongTarget), ShouldBeTrue)

			err = mgr.Authorize(ctx, "key-1", "alice", model.TargetGame,
				auth.Call{Selector: model.SelectorCashOut, GameID: 7})
			So(errors.Is(err, auth.ErrSelectorNotAllowed), ShouldBeTrue)

			err = mgr.Authorize(ctx, "key-1", "alice", model.TargetGame,
				auth.Call{Selector: model.SelectorAddBand, GameID: 8})
			So(errors.Is(err, auth.ErrGameMismatch), ShouldBeTrue)
		})

		Convey("Then an expired session fails closed", func() {
			clock.Advance(time.Hour + time.Second)
			err := mgr.Authorize(ctx, "key-1", "alice", model.TargetGame, call)
			So(errors.Is(err, auth.ErrSessionExpired), ShouldBeTrue)
		})
	})

	Convey("Given a session with no game binding", t, func() {
		ctx := context.Background()
		mgr := auth.NewSessionManager()
		_, err := mgr.CreateSession(ctx, "alice", "key-1", time.Hour,
			model.TargetGame, []string{model.SelectorAddBand}, 0)
		So(err, ShouldBeNil)

		Convey("Then any game id is allowed", func() {
			So(mgr.Authorize(ctx, "key-1", "alice", model.TargetGame,
				auth.Call{Selector: model.SelectorAddBand, GameID: 1}), ShouldBeNil)
			So(mgr.Authorize(ctx, "key-1", "alice", model.TargetGame,
				auth.Call{Selector: model.SelectorAddBand, GameID: 999}), ShouldBeNil)
		})
	})
}

func TestSessionManager_ActiveCount(t *testing.T) {
	Convey("Given sessions for two owners", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		mgr := auth.NewSessionManager(auth.WithClock(clock))

		_, err := mgr.CreateSession(ctx, "alice", "key-a", time.Hour,
			model.TargetGame, []string{model.SelectorAddBand}, 0)
		So(err, ShouldBeNil)
		_, err = mgr.CreateSession(ctx, "bob", "key-b", 2*time.Hour,
			model.TargetGame, []string{model.SelectorAddBand}, 0)
		So(err, ShouldBeNil)

		Convey("Then both count while live", func() {
			So(mgr.ActiveCount(ctx), ShouldEqual, 2)
		})

		Convey("Then expired sessions drop out of the count", func() {
			clock.Advance(time.Hour + time.Second)
			So(mgr.ActiveCount(ctx), ShouldEqual, 1)
		})
	})
}
