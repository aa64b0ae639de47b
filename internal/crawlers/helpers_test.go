package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser/browsertest"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
)

// 测试使用的短等待参数
func testWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Timeout:     300 * time.Millisecond,
		FieldWait:   30 * time.Millisecond,
		Interval:    2 * time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
	}
}

func testScrollPolicy(maxSteps int) ScrollPolicy {
	return ScrollPolicy{
		MaxSteps:      maxSteps,
		GrowthTimeout: 30 * time.Millisecond,
		NudgeOffset:   -100,
		NudgePause:    time.Millisecond,
	}
}

func fullPlace(label string) browsertest.PlaceFixture {
	return browsertest.PlaceFixture{
		Label:   label,
		Name:    label,
		Address: fmt.Sprintf("%s Street 1, Hanoi", label),
		Phone:   "+84 24 1234 5678",
		Hours: []models.DayHours{
			{Day: "Monday", Hours: "7 AM–5 PM"},
			{Day: "Tuesday", Hours: "7 AM–5 PM"},
			{Day: "Sunday", Hours: "Closed"},
		},
		Photo:  "https://lh5.googleusercontent.com/p/" + label,
		Rating: "4.5",
		Reviews: []models.Review{
			{ReviewerName: "Alice", ReviewTime: "2 weeks ago", Rating: "5 stars", ReviewContent: "Great coffee and friendly staff"},
			{ReviewerName: "Bob", ReviewTime: "a month ago", Rating: "4 stars", ReviewContent: "Nice place to work"},
			{ReviewerName: "Carol", ReviewTime: "a year ago", Rating: "3 stars", ReviewContent: ""},
		},
		ReviewPageSize:  2,
		TruncateReviews: true,
	}
}

func newEngine(d *browsertest.DOM) (*Locator, *DetailExtractor) {
	loc := NewLocator(d, testWaitPolicy())
	reviews := NewReviewHarvester(loc, testScrollPolicy(10))
	return loc, NewDetailExtractor(loc, reviews, nil)
}
