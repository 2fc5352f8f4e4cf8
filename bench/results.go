package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/openziti/blockpool/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Result struct {
	Name    string
	Samples []*util.Sample
}

func (self *Result) add(start time.Time, elapsed time.Duration) {
	self.Samples = append(self.Samples, &util.Sample{Ts: start, V: elapsed.Nanoseconds()})
}

func (self *Result) Mean() time.Duration {
	if len(self.Samples) == 0 {
		return 0
	}
	var total int64
	for _, s := range self.Samples {
		total += s.V
	}
	return time.Duration(total / int64(len(self.Samples)))
}

func (self *Result) Min() time.Duration {
	if len(self.Samples) == 0 {
		return 0
	}
	min := self.Samples[0].V
	for _, s := range self.Samples[1:] {
		if s.V < min {
			min = s.V
		}
	}
	return time.Duration(min)
}

func (self *Result) Max() time.Duration {
	var max int64
	for _, s := range self.Samples {
		if s.V > max {
			max = s.V
		}
	}
	return time.Duration(max)
}

// Results holds one Result per scenario, ordered by scenario position.
type Results struct {
	Iterations int
	Reserved   int // growths spent on the initial reserve
	Growths    int // growths after the initial reserve
	byOrder    *treemap.Map
}

func newResults(iterations int) *Results {
	return &Results{Iterations: iterations, byOrder: treemap.NewWith(utils.IntComparator)}
}

func (self *Results) result(order int, name string) *Result {
	if v, found := self.byOrder.Get(order); found {
		return v.(*Result)
	}
	r := &Result{Name: name}
	self.byOrder.Put(order, r)
	return r
}

func (self *Results) Get(name string) (*Result, bool) {
	for _, v := range self.byOrder.Values() {
		if r := v.(*Result); r.Name == name {
			return r, true
		}
	}
	return nil, false
}

func (self *Results) All() []*Result {
	var out []*Result
	it := self.byOrder.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Result))
	}
	return out
}

func (self *Results) String() string {
	out := fmt.Sprintf("results [%d iterations, %d growths after reserve] {\n", self.Iterations, self.Growths)
	for _, r := range self.All() {
		out += fmt.Sprintf("\t%-20s mean %-12v min %-12v max %v\n", r.Name, r.Mean(), r.Min(), r.Max())
	}
	out += "}\n"
	return out
}

// Write stores each scenario's round timings as samples under outPath.
func (self *Results) Write(outPath string, values map[string]string) error {
	if values == nil {
		values = make(map[string]string)
	}
	values["iterations"] = fmt.Sprintf("%d", self.Iterations)
	var names []string
	for _, r := range self.All() {
		names = append(names, r.Name)
	}
	values["scenarios"] = strings.Join(names, ",")
	if err := util.WriteMetricsId(MetricsId, outPath, values); err != nil {
		return errors.Wrap(err, "error writing metrics id")
	}
	for _, r := range self.All() {
		if err := util.WriteSamples(r.Name, outPath, r.Samples); err != nil {
			return errors.Wrapf(err, "error writing samples for [%s]", r.Name)
		}
	}
	logrus.Infof("wrote results for [%d] scenarios to [%s]", self.byOrder.Size(), outPath)
	return nil
}

// MetricsId identifies result directories written by Results.Write.
const MetricsId = "blockpool.bench"
