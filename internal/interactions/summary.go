package interactions

import "sort"

// Summary describes the interaction log as a whole.
type Summary struct {
	Users        int            `json:"users"`
	Items        int            `json:"items"`
	Events       int            `json:"events"`
	MeanRating   float64        `json:"mean_rating"`
	Distribution []RatingBucket `json:"distribution"`
	TopItems     []ItemActivity `json:"top_items"`
	Density      float64        `json:"density"`
}

// RatingBucket counts events with a given rating value.
type RatingBucket struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// ItemActivity is the rating volume and mean of a single item.
type ItemActivity struct {
	ItemID     int     `json:"item_id"`
	Count      int     `json:"count"`
	MeanRating float64 `json:"mean_rating"`
}

// Summarize computes totals, the rating distribution and the topN most rated
// items. Ties in TopItems are broken by ascending item id.
func (l *Log) Summarize(topN int) Summary {
	s := Summary{
		Users:  len(l.byUser),
		Items:  len(l.items),
		Events: l.events,
	}

	dist := make(map[float64]int)
	perItem := make(map[int]*ItemActivity)
	var sum float64
	for _, ratings := range l.byUser {
		for item, r := range ratings {
			sum += r
			dist[r]++
			a, ok := perItem[item]
			if !ok {
				a = &ItemActivity{ItemID: item}
				perItem[item] = a
			}
			a.Count++
			a.MeanRating += r
		}
	}
	if s.Events > 0 {
		s.MeanRating = sum / float64(s.Events)
	}
	if s.Users > 0 && s.Items > 0 {
		s.Density = float64(s.Events) / (float64(s.Users) * float64(s.Items))
	}

	s.Distribution = make([]RatingBucket, 0, len(dist))
	for r, n := range dist {
		s.Distribution = append(s.Distribution, RatingBucket{Rating: r, Count: n})
	}
	sort.Slice(s.Distribution, func(i, j int) bool {
		return s.Distribution[i].Rating < s.Distribution[j].Rating
	})

	activity := make([]ItemActivity, 0, len(perItem))
	for _, a := range perItem {
		a.MeanRating /= float64(a.Count)
		activity = append(activity, *a)
	}
	sort.Slice(activity, func(i, j int) bool {
		if activity[i].Count != activity[j].Count {
			return activity[i].Count > activity[j].Count
		}
		return activity[i].ItemID < activity[j].ItemID
	})
	if topN < 0 {
		topN = 0
	}
	if len(activity) > topN {
		activity = activity[:topN]
	}
	s.TopItems = activity
	return s
}
