package judge

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quizboard/internal/domain/model"
)

func fastJudge(opts ...Option) *InMemoryJudge {
	base := []Option{WithLatencyRange(time.Microsecond, 2*time.Microsecond)}
	return NewInMemoryJudge(append(base, opts...)...)
}

func TestJudgeVerdicts(t *testing.T) {
	Convey("Given a judge with an answer key", t, func() {
		ctx := context.Background()
		j := fastJudge(WithAnswerKey(map[string]string{
			"geo-1": "Paris",
		}))

		Convey("When the submitted answer matches", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-1", Answer: "Paris"})

			Convey("Then the verdict is correct with positive points", func() {
				So(err, ShouldBeNil)
				So(v.Correct, ShouldBeTrue)
				So(v.Delta, ShouldEqual, 100)
			})
		})

		Convey("When the answer differs only in case and whitespace", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-1", Answer: "  paris "})

			Convey("Then it is still accepted", func() {
				So(err, ShouldBeNil)
				So(v.Correct, ShouldBeTrue)
			})
		})

		Convey("When the submitted answer is wrong", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-1", Answer: "London"})

			Convey("Then the verdict deducts the penalty", func() {
				So(err, ShouldBeNil)
				So(v.Correct, ShouldBeFalse)
				So(v.Delta, ShouldEqual, -10)
			})
		})

		Convey("When the question is not in the key", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-99", Answer: "anything"})

			Convey("Then the verdict is incorrect", func() {
				So(err, ShouldBeNil)
				So(v.Correct, ShouldBeFalse)
				So(v.Delta, ShouldEqual, -10)
			})
		})
	})
}

func TestJudgeConfiguration(t *testing.T) {
	Convey("Given per-question points and a custom penalty", t, func() {
		ctx := context.Background()
		j := fastJudge(
			WithAnswerKey(map[string]string{"bonus-1": "42", "geo-1": "Paris"}),
			WithQuestionPoints(map[string]int64{"bonus-1": 250}, 50),
			WithWrongAnswerPenalty(25),
		)

		Convey("When a bonus question is answered correctly", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "bonus-1", Answer: "42"})

			Convey("Then its own point value applies", func() {
				So(err, ShouldBeNil)
				So(v.Delta, ShouldEqual, 250)
			})
		})

		Convey("When a regular question is answered correctly", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-1", Answer: "paris"})

			Convey("Then the default point value applies", func() {
				So(err, ShouldBeNil)
				So(v.Delta, ShouldEqual, 50)
			})
		})

		Convey("When a question is answered incorrectly", func() {
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-1", Answer: "Rome"})

			Convey("Then the configured penalty applies", func() {
				So(err, ShouldBeNil)
				So(v.Delta, ShouldEqual, -25)
			})
		})
	})
}

func TestJudgeSetAnswer(t *testing.T) {
	Convey("Given a judge with no key for a question", t, func() {
		ctx := context.Background()
		j := fastJudge()

		Convey("When an answer is registered at runtime", func() {
			j.SetAnswer("geo-2", "Berlin")
			v, err := j.Judge(ctx, model.Submission{QuestionID: "geo-2", Answer: "berlin"})

			Convey("Then submissions judge against it", func() {
				So(err, ShouldBeNil)
				So(v.Correct, ShouldBeTrue)
			})
		})
	})
}

func TestJudgeCancellation(t *testing.T) {
	Convey("Given a judge with noticeable simulated latency", t, func() {
		j := NewInMemoryJudge(WithLatencyRange(100*time.Millisecond, 200*time.Millisecond))

		Convey("When the context is cancelled before judging completes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()
			_, err := j.Judge(ctx, model.Submission{QuestionID: "geo-1", Answer: "Paris"})

			Convey("Then the judge returns the context error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "context")
			})
		})
	})
}
