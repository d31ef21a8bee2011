package season_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/kyral/bandrush/internal/domain/season"
)

func TestLedger_Seasons(t *testing.T) {
	Convey("Given a fresh ledger", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		ledger := season.NewLedger(
			season.WithClock(clock),
			season.WithSeasonDuration(7*24*time.Hour),
		)

		Convey("Then season 1 opens immediately", func() {
			s := ledger.Current(ctx)
			So(s.Number, ShouldEqual, 1)
			So(s.PrizePool, ShouldEqual, 0)
			So(s.Finalized, ShouldBeFalse)
			So(s.EndTime.Sub(s.StartTime), ShouldEqual, 7*24*time.Hour)
		})

		Convey("When pool credits arrive", func() {
			So(ledger.CreditPool(ctx, 1, 90), ShouldBeNil)
			So(ledger.CreditPool(ctx, 1, 90), ShouldBeNil)

			Convey("Then the pool accumulates", func() {
				So(ledger.Current(ctx).PrizePool, ShouldEqual, 180)
			})

			Convey("And a negative credit reverses a contribution", func() {
				So(ledger.CreditPool(ctx, 1, -90), ShouldBeNil)
				So(ledger.Current(ctx).PrizePool, ShouldEqual, 90)
			})
		})

		Convey("When crediting an unknown season", func() {
			err := ledger.CreditPool(ctx, 42, 90)
			So(errors.Is(err, season.ErrUnknownSeason), ShouldBeTrue)
		})

		Convey("When the ledger rolls over", func() {
			clock.Advance(time.Hour)
			next, err := ledger.Rollover(ctx)
			So(err, ShouldBeNil)

			Convey("Then season 2 opens with a clean slate", func() {
				So(next.Number, ShouldEqual, 2)
				So(next.PrizePool, ShouldEqual, 0)
				So(ledger.CurrentNumber(ctx), ShouldEqual, 2)
			})

			Convey("Then season 1's end time clamps to the rollover", func() {
				old, err := ledger.Snapshot(ctx, 1)
				So(err, ShouldBeNil)
				So(old.EndTime, ShouldHappenOnOrBefore, clock.Now())
			})

			Convey("Then both seasons stay queryable", func() {
				_, err := ledger.Snapshot(ctx, 1)
				So(err, ShouldBeNil)
				_, err = ledger.Snapshot(ctx, 2)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestLedger_RecordScore(t *testing.T) {
	Convey("Given a ledger with a board of three", t, func() {
		ctx := context.Background()
		ledger := season.NewLedger(season.WithBoardSize(3))

		Convey("When scores arrive in mixed order", func() {
			So(ledger.RecordScore(ctx, 1, "alice", 500, 1), ShouldBeNil)
			So(ledger.RecordScore(ctx, 1, "bob", 900, 2), ShouldBeNil)
			So(ledger.RecordScore(ctx, 1, "carol", 700, 3), ShouldBeNil)

			Convey("Then the board is descending with contiguous ranks", func() {
				board, err := ledger.Board(ctx, 1)
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 3)
				So(board[0].Player, ShouldEqual, "bob")
				So(board[1].Player, ShouldEqual, "carol")
				So(board[2].Player, ShouldEqual, "alice")
				for i, e := range board {
					So(e.Rank, ShouldEqual, i+1)
				}
			})

			Convey("And a fourth higher score evicts the lowest", func() {
				So(ledger.RecordScore(ctx, 1, "dave", 800, 4), ShouldBeNil)
				board, err := ledger.Board(ctx, 1)
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 3)
				So(ledger.RankOf(ctx, 1, "alice"), ShouldEqual, 0)
				So(ledger.RankOf(ctx, 1, "dave"), ShouldEqual, 2)
			})

			Convey("And a score below the full board changes nothing", func() {
				So(ledger.RecordScore(ctx, 1, "erin", 100, 5), ShouldBeNil)
				So(ledger.RankOf(ctx, 1, "erin"), ShouldEqual, 0)
				board, _ := ledger.Board(ctx, 1)
				So(len(board), ShouldEqual, 3)
			})
		})

		Convey("When a player scores repeatedly", func() {
			So(ledger.RecordScore(ctx, 1, "alice", 500, 1), ShouldBeNil)
			So(ledger.RecordScore(ctx, 1, "alice", 300, 2), ShouldBeNil)

			Convey("Then only the personal best counts", func() {
				best, err := ledger.Best(ctx, 1, "alice")
				So(err, ShouldBeNil)
				So(best.Score, ShouldEqual, 500)
				So(best.GameID, ShouldEqual, 1)
			})

			Convey("And an equal score does not replace the entry", func() {
				So(ledger.RecordScore(ctx, 1, "alice", 500, 3), ShouldBeNil)
				best, _ := ledger.Best(ctx, 1, "alice")
				So(best.GameID, ShouldEqual, 1)
			})

			Convey("And a strictly better score replaces it", func() {
				So(ledger.RecordScore(ctx, 1, "alice", 501, 3), ShouldBeNil)
				best, _ := ledger.Best(ctx, 1, "alice")
				So(best.Score, ShouldEqual, 501)
				So(best.GameID, ShouldEqual, 3)
				board, _ := ledger.Board(ctx, 1)
				So(len(board), ShouldEqual, 1)
			})
		})

		Convey("When two players tie", func() {
			So(ledger.RecordScore(ctx, 1, "alice", 500, 1), ShouldBeNil)
			So(ledger.RecordScore(ctx, 1, "bob", 500, 2), ShouldBeNil)

			Convey("Then the earlier cash-out ranks higher", func() {
				So(ledger.RankOf(ctx, 1, "alice"), ShouldEqual, 1)
				So(ledger.RankOf(ctx, 1, "bob"), ShouldEqual, 2)
			})
		})

		Convey("When a zero score is recorded", func() {
			So(ledger.RecordScore(ctx, 1, "alice", 0, 1), ShouldBeNil)

			Convey("Then the board stays empty", func() {
				board, err := ledger.Board(ctx, 1)
				So(err, ShouldBeNil)
				So(board, ShouldBeEmpty)
			})
		})

		Convey("When an unranked player is queried", func() {
			So(ledger.RankOf(ctx, 1, "nobody"), ShouldEqual, 0)
			_, err := ledger.Best(ctx, 1, "nobody")
			So(errors.Is(err, season.ErrPlayerNotRanked), ShouldBeTrue)
		})
	})
}

func TestLedger_BoardBound(t *testing.T) {
	Convey("Given a default ledger", t, func() {
		ctx := context.Background()
		ledger := season.NewLedger()

		Convey("When far more players score than the board holds", func() {
			for i := 1; i <= 50; i++ {
				player := fmt.Sprintf("player-%02d", i)
				So(ledger.RecordScore(ctx, 1, player, int64(i*10), uint64(i)), ShouldBeNil)
			}

			Convey("Then only the top ten remain, best first", func() {
				board, err := ledger.Board(ctx, 1)
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 10)
				So(board[0].Score, ShouldEqual, 500)
				So(board[9].Score, ShouldEqual, 410)
			})
		})
	})
}

func TestLedger_CloseForDistribution(t *testing.T) {
	Convey("Given a season with a pool and winners", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		ledger := season.NewLedger(
			season.WithClock(clock),
			season.WithSeasonDuration(24*time.Hour),
		)
		So(ledger.CreditPool(ctx, 1, 1000), ShouldBeNil)
		So(ledger.RecordScore(ctx, 1, "alice", 500, 1), ShouldBeNil)

		Convey("When the season is still running", func() {
			_, _, err := ledger.CloseForDistribution(ctx, 1)
			So(errors.Is(err, season.ErrSeasonNotOver), ShouldBeTrue)
		})

		Convey("When the season end time has passed", func() {
			clock.Advance(24*time.Hour + time.Second)
			pool, winners, err := ledger.CloseForDistribution(ctx, 1)

			Convey("Then the pool drains and the winners are ranked", func() {
				So(err, ShouldBeNil)
				So(pool, ShouldEqual, 1000)
				So(len(winners), ShouldEqual, 1)
				So(winners[0].Player, ShouldEqual, "alice")
				So(winners[0].Rank, ShouldEqual, 1)
			})

			Convey("Then the season is finalized exactly once", func() {
				So(err, ShouldBeNil)
				_, _, err := ledger.CloseForDistribution(ctx, 1)
				So(errors.Is(err, season.ErrSeasonFinalized), ShouldBeTrue)
			})

			Convey("Then a finalized season accepts no new money or scores", func() {
				So(err, ShouldBeNil)
				So(errors.Is(ledger.CreditPool(ctx, 1, 10), season.ErrSeasonFinalized), ShouldBeTrue)
				So(errors.Is(ledger.RecordScore(ctx, 1, "bob", 100, 9), season.ErrSeasonFinalized), ShouldBeTrue)
			})
		})

		Convey("When closing an unknown season", func() {
			_, _, err := ledger.CloseForDistribution(ctx, 9)
			So(errors.Is(err, season.ErrUnknownSeason), ShouldBeTrue)
		})
	})
}
