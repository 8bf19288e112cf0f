package odometer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/motor/fake"
)

const (
	testRadius = 2.1
	testTrack  = 15.0
)

func newTestOdometer(t *testing.T, clk clock.Clock) (*Odometer, *fake.Motor, *fake.Motor) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	left := fake.NewMotor("left", logger)
	right := fake.NewMotor("right", logger)
	o, err := New(left, right, Config{WheelRadius: testRadius, Track: testTrack, Clock: clk}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.Update(context.Background()), test.ShouldBeNil)
	return o, left, right
}

// wheelDegsFor returns the wheel degrees that roll the given distance.
func wheelDegsFor(distance float64) float64 {
	return 180 * distance / (math.Pi * testRadius)
}

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)
	m := fake.NewMotor("m", logger)

	for _, tc := range []struct {
		name  string
		left  motor.Motor
		right motor.Motor
		cfg   Config
	}{
		{"missing motor", m, nil, Config{WheelRadius: 1, Track: 1}},
		{"zero radius", m, m, Config{Track: 1}},
		{"negative track", m, m, Config{WheelRadius: 1, Track: -2}},
		{"negative period", m, m, Config{WheelRadius: 1, Track: 1, Period: -time.Second}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.left, tc.right, tc.cfg, logger)
			test.That(t, err, test.ShouldNotBeNil)
			var oErr *Error
			test.That(t, err, test.ShouldHaveSameTypeAs, oErr)
			test.That(t, err.Error(), test.ShouldStartWith, "odometer: ")
		})
	}
}

func TestUpdateStraight(t *testing.T) {
	ctx := context.Background()
	o, left, right := newTestOdometer(t, nil)

	test.That(t, o.SetPose(ctx, Pose{Theta: 90}), test.ShouldBeNil)
	left.SetTachoCount(wheelDegsFor(10))
	right.SetTachoCount(wheelDegsFor(10))
	test.That(t, o.Update(ctx), test.ShouldBeNil)

	pose, err := o.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.X, test.ShouldAlmostEqual, 10)
	test.That(t, pose.Y, test.ShouldAlmostEqual, 0)
	test.That(t, pose.Theta, test.ShouldAlmostEqual, 90)
}

func TestUpdateSpin(t *testing.T) {
	ctx := context.Background()
	o, left, right := newTestOdometer(t, nil)

	// A quarter turn moves each wheel along a quarter of the track circle.
	quarter := wheelDegsFor(math.Pi * testTrack / 4)

	t.Run("clockwise grows the heading", func(t *testing.T) {
		left.SetTachoCount(quarter)
		right.SetTachoCount(-quarter)
		test.That(t, o.Update(ctx), test.ShouldBeNil)
		pose, err := o.Pose(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Theta, test.ShouldAlmostEqual, 90)
		test.That(t, pose.X, test.ShouldAlmostEqual, 0)
		test.That(t, pose.Y, test.ShouldAlmostEqual, 0)
	})

	t.Run("counterclockwise wraps below zero", func(t *testing.T) {
		left.SetTachoCount(-quarter)
		right.SetTachoCount(quarter)
		test.That(t, o.Update(ctx), test.ShouldBeNil)
		pose, err := o.Pose(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Theta, test.ShouldAlmostEqual, 270)
	})
}

func TestSetPoseDiscardsEarlierMotion(t *testing.T) {
	ctx := context.Background()
	o, left, right := newTestOdometer(t, nil)

	left.SetTachoCount(100)
	right.SetTachoCount(-100)
	test.That(t, o.SetPose(ctx, Pose{X: 1, Y: 2, Theta: -90}), test.ShouldBeNil)
	test.That(t, o.Update(ctx), test.ShouldBeNil)

	pose, err := o.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose, test.ShouldResemble, Pose{X: 1, Y: 2, Theta: 270})
}

func TestStartIntegratesOnTicks(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	o, left, right := newTestOdometer(t, mock)
	o.Start()
	o.Start()
	defer func() {
		test.That(t, o.Close(), test.ShouldBeNil)
	}()

	left.SetTachoCount(wheelDegsFor(5))
	right.SetTachoCount(wheelDegsFor(5))

	deadline := time.Now().Add(5 * time.Second)
	for {
		mock.Add(DefaultPeriod)
		pose, err := o.Pose(ctx)
		test.That(t, err, test.ShouldBeNil)
		if pose.Y > 4.99 {
			test.That(t, pose.Y, test.ShouldAlmostEqual, 5)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pose never integrated, last %s", pose)
		}
		time.Sleep(time.Millisecond)
	}
	test.That(t, o.Close(), test.ShouldBeNil)
}

func TestSynced(t *testing.T) {
	ctx := context.Background()
	o, left, right := newTestOdometer(t, nil)
	var estimate PoseEstimate = Synced{o}

	left.SetTachoCount(wheelDegsFor(3))
	right.SetTachoCount(wheelDegsFor(3))
	pose, err := estimate.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Y, test.ShouldAlmostEqual, 3)

	test.That(t, estimate.SetPose(ctx, Pose{Theta: 360}), test.ShouldBeNil)
	pose, err = estimate.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose, test.ShouldResemble, Pose{})
}
