package auth_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kyral/bandrush/internal/domain/auth"
)

func TestOperatorRegistry_Authorize(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		ctx := context.Background()
		reg := auth.NewOperatorRegistry()

		Convey("When an owner authorizes an operator", func() {
			So(reg.Authorize(ctx, "alice", "casino"), ShouldBeNil)

			Convey("Then the grant is unlimited by default", func() {
				operator, allowance, unlimited, ok := reg.Status(ctx, "alice")
				So(ok, ShouldBeTrue)
				So(operator, ShouldEqual, "casino")
				So(allowance, ShouldEqual, 0)
				So(unlimited, ShouldBeTrue)
			})

			Convey("And re-authorizing replaces the operator", func() {
				So(reg.Authorize(ctx, "alice", "arcade"), ShouldBeNil)
				operator, _, unlimited, ok := reg.Status(ctx, "alice")
				So(ok, ShouldBeTrue)
				So(operator, ShouldEqual, "arcade")
				So(unlimited, ShouldBeTrue)
			})
		})

		Convey("When the owner names themselves", func() {
			So(errors.Is(reg.Authorize(ctx, "alice", "alice"), auth.ErrSelfOperator), ShouldBeTrue)
		})

		Convey("When owner or operator is empty", func() {
			So(errors.Is(reg.Authorize(ctx, "", "casino"), auth.ErrInvalidOperator), ShouldBeTrue)
			So(errors.Is(reg.Authorize(ctx, "alice", ""), auth.ErrInvalidOperator), ShouldBeTrue)
		})

		Convey("When revoking a missing grant", func() {
			So(errors.Is(reg.Revoke(ctx, "alice"), auth.ErrNotOperator), ShouldBeTrue)
		})
	})
}

func TestOperatorRegistry_Allowance(t *testing.T) {
	Convey("Given an authorized operator with a 300 allowance", t, func() {
		ctx := context.Background()
		reg := auth.NewOperatorRegistry()
		So(reg.Authorize(ctx, "alice", "casino"), ShouldBeNil)
		So(reg.SetAllowance(ctx, "alice", 300), ShouldBeNil)

		Convey("When spend stays within the allowance", func() {
			So(reg.Consume(ctx, "alice", "casino", 105), ShouldBeNil)
			So(reg.Consume(ctx, "alice", "casino", 105), ShouldBeNil)

			Convey("Then the remainder is tracked", func() {
				_, allowance, unlimited, ok := reg.Status(ctx, "alice")
				So(ok, ShouldBeTrue)
				So(allowance, ShouldEqual, 90)
				So(unlimited, ShouldBeFalse)
			})

			Convey("And overspending fails closed", func() {
				err := reg.Consume(ctx, "alice", "casino", 105)
				So(errors.Is(err, auth.ErrAllowanceExceeded), ShouldBeTrue)
				_, allowance, _, _ := reg.Status(ctx, "alice")
				So(allowance, ShouldEqual, 90)
			})
		})

		Convey("When the allowance is spent to exactly zero", func() {
			So(reg.SetAllowance(ctx, "alice", 105), ShouldBeNil)
			So(reg.Consume(ctx, "alice", "casino", 105), ShouldBeNil)

			Convey("Then the grant stays capped, not unlimited", func() {
				_, allowance, unlimited, ok := reg.Status(ctx, "alice")
				So(ok, ShouldBeTrue)
				So(allowance, ShouldEqual, 0)
				So(unlimited, ShouldBeFalse)
				So(errors.Is(reg.Consume(ctx, "alice", "casino", 1), auth.ErrAllowanceExceeded), ShouldBeTrue)
			})
		})

		Convey("When a failed start refunds the spend", func() {
			So(reg.Consume(ctx, "alice", "casino", 105), ShouldBeNil)
			reg.Refund(ctx, "alice", "casino", 105)
			_, allowance, _, _ := reg.Status(ctx, "alice")
			So(allowance, ShouldEqual, 300)
		})

		Convey("When setting the allowance back to zero", func() {
			So(reg.SetAllowance(ctx, "alice", 0), ShouldBeNil)

			Convey("Then the spend is unlimited again", func() {
				So(reg.Consume(ctx, "alice", "casino", 1_000_000), ShouldBeNil)
				_, _, unlimited, _ := reg.Status(ctx, "alice")
				So(unlimited, ShouldBeTrue)
			})
		})

		Convey("When an unauthorized operator tries to spend", func() {
			So(errors.Is(reg.Consume(ctx, "alice", "arcade", 10), auth.ErrNotOperator), ShouldBeTrue)
			So(errors.Is(reg.Consume(ctx, "bob", "casino", 10), auth.ErrNotOperator), ShouldBeTrue)
		})

		Convey("When the grant is revoked", func() {
			So(reg.Revoke(ctx, "alice"), ShouldBeNil)

			Convey("Then both authorization and allowance are gone", func() {
				_, _, _, ok := reg.Status(ctx, "alice")
				So(ok, ShouldBeFalse)
				So(errors.Is(reg.Consume(ctx, "alice", "casino", 10), auth.ErrNotOperator), ShouldBeTrue)
			})
		})

		Convey("When setting a negative allowance", func() {
			So(errors.Is(reg.SetAllowance(ctx, "alice", -1), auth.ErrInvalidOperator), ShouldBeTrue)
		})

		Convey("When setting an allowance without a grant", func() {
			So(errors.Is(reg.SetAllowance(ctx, "bob", 100), auth.ErrNotOperator), ShouldBeTrue)
		})
	})
}
