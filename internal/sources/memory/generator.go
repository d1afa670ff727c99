package memory

import (
	"encoding/json"
	"math/rand"
	"sync"

	"workhours/internal/core"
)

// Generator produces plausible synthetic work days: a start between 09:00
// and 10:00, an end between 17:00 and 19:00, and alternating work blocks of
// 20-90 minutes separated by 5-30 minute breaks.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// Day generates the record for date. The detailed work is encoded as a JSON
// string, the way the legacy backend stores it.
func (g *Generator) Day(date core.DateKey) core.RawRecord {
	start := int((9 + g.float()) * 3600)
	end := int((17 + g.float()*2) * 3600)

	var sessions []core.WorkSession
	worked := 0
	working := true
	for cur := start; cur < end; working = !working {
		var d int
		if working {
			d = int((20 + g.float()*70) * 60)
		} else {
			d = int((5 + g.float()*25) * 60)
		}
		d = min(d, end-cur)
		if working {
			sessions = append(sessions, core.WorkSession{
				StartTime: core.SecondsToClock(cur),
				EndTime:   core.SecondsToClock(cur + d),
				Duration:  core.SecondsToClock(d),
			})
			worked += d
		}
		cur += d
	}

	rec := core.RawRecord{
		Date:      date.String(),
		Hours:     core.FlexInt(worked / 3600),
		Minutes:   core.FlexInt(worked % 3600 / 60),
		Seconds:   core.FlexInt(worked % 60),
		StartTime: core.SecondsToClock(start)[:5],
		EndTime:   core.SecondsToClock(end)[:5],
	}
	rec.DetailedWork = encodeSessions(sessions)
	return rec
}

// EmptyDay is a day with no tracked work.
func EmptyDay(date core.DateKey) core.RawRecord {
	return core.RawRecord{Date: date.String(), DetailedWork: encodeSessions(nil)}
}

func encodeSessions(sessions []core.WorkSession) json.RawMessage {
	if sessions == nil {
		sessions = []core.WorkSession{}
	}
	inner, _ := json.Marshal(sessions)
	outer, _ := json.Marshal(string(inner))
	return outer
}
