package util

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const metricsIdName = "metrics.id"

type MetricsId struct {
	Id     string            `json:"id"`
	Values map[string]string `json:"values,omitempty"`
}

func WriteMetricsId(id, outPath string, values map[string]string) error {
	mid := &MetricsId{Id: id, Values: values}
	data, err := json.MarshalIndent(mid, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(filepath.Join(outPath, metricsIdName), data, os.ModePerm)
}

func ReadMetricsId(path string) (*MetricsId, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	metricsId := &MetricsId{}
	if err = json.Unmarshal(data, metricsId); err != nil {
		return nil, err
	}
	return metricsId, nil
}

// DiscoverMetrics walks root and returns every directory containing a metrics.id, keyed by directory.
func DiscoverMetrics(root string) (map[string]*MetricsId, error) {
	var metricsIdPaths []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && filepath.Base(path) == metricsIdName {
			metricsIdPaths = append(metricsIdPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metricsMap := make(map[string]*MetricsId)
	for _, metricsIdPath := range metricsIdPaths {
		metricsId, err := ReadMetricsId(metricsIdPath)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading [%s]", metricsIdPath)
		}
		metricsMap[filepath.Dir(metricsIdPath)] = metricsId
	}
	return metricsMap, nil
}

type Sample struct {
	Ts time.Time
	V  int64
}

func WriteSamples(name, outPath string, samples []*Sample) error {
	path := filepath.Join(outPath, fmt.Sprintf("%s.csv", name))
	oF, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.ModePerm)
	if err != nil {
		return err
	}
	defer func() { _ = oF.Close() }()
	w := bufio.NewWriter(oF)
	for _, sample := range samples {
		if _, err := fmt.Fprintf(w, "%d,%d\n", sample.Ts.UnixNano(), sample.V); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	logrus.Infof("wrote [%d] samples to [%s]", len(samples), path)
	return nil
}

// ReadSamples reads a sample file written by WriteSamples, preserving its order.
func ReadSamples(path string) ([]*Sample, error) {
	iF, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = iF.Close() }()

	var samples []*Sample
	scanner := bufio.NewScanner(iF)
	for line := 1; scanner.Scan(); line++ {
		tokens := strings.Split(scanner.Text(), ",")
		if len(tokens) != 2 {
			return nil, errors.Errorf("malformed sample at [%s:%d]", path, line)
		}
		ts, err := strconv.ParseInt(tokens[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad timestamp at [%s:%d]", path, line)
		}
		v, err := strconv.ParseInt(tokens[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad value at [%s:%d]", path, line)
		}
		samples = append(samples, &Sample{Ts: time.Unix(0, ts), V: v})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}
