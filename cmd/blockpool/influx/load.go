package influx

import (
	"fmt"
	"path/filepath"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/openziti/blockpool"
	"github.com/openziti/blockpool/bench"
	"github.com/openziti/blockpool/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	influxCmd.AddCommand(influxLoadCmd)
}

var influxLoadCmd = &cobra.Command{
	Use:   "load <metricsRoot>",
	Short: "Load metrics data into the analyzer",
	Args:  cobra.ExactArgs(1),
	Run:   influxLoad,
}

func influxLoad(_ *cobra.Command, args []string) {
	found, err := util.DiscoverMetrics(args[0])
	if err != nil {
		logrus.Fatalf("error discovering metrics (%v)", err)
	}

	authToken := ""
	if influxDbUsername != "" || influxDbPassword != "" {
		authToken = fmt.Sprintf("%s:%s", influxDbUsername, influxDbPassword)
	}
	client := influxdb2.NewClient(influxDbUrl, authToken)
	defer client.Close()
	writeApi := client.WriteAPI("", influxDbDatabase)

	for root, mid := range found {
		datasets, err := datasetsFor(mid)
		if err != nil {
			logrus.Warnf("skipping [%s] (%v)", root, err)
			continue
		}
		if err := loadDatasets(writeApi, root, mid, datasets); err != nil {
			logrus.Fatalf("error loading [%s] (%v)", root, err)
		}
	}
	writeApi.Flush()
	logrus.Infof("complete")
}

func datasetsFor(mid *util.MetricsId) ([]string, error) {
	switch {
	case mid.Id == bench.MetricsId:
		if mid.Values["scenarios"] == "" {
			return nil, errors.New("no scenarios recorded")
		}
		return strings.Split(mid.Values["scenarios"], ","), nil

	case strings.HasPrefix(mid.Id, "blockpool."):
		return blockpool.PoolDatasets, nil

	default:
		return nil, errors.Errorf("unknown metrics id '%s'", mid.Id)
	}
}

func loadDatasets(writeApi api.WriteAPI, root string, mid *util.MetricsId, datasets []string) error {
	run := filepath.Base(root)
	for _, dataset := range datasets {
		datasetPath := filepath.Join(root, dataset+".csv")
		samples, err := util.ReadSamples(datasetPath)
		if err != nil {
			return errors.Wrapf(err, "error reading dataset [%s]", datasetPath)
		}
		for _, sample := range samples {
			p := influxdb2.NewPoint(dataset, nil, map[string]interface{}{"v": sample.V}, sample.Ts).
				AddTag("type", mid.Id).
				AddTag("run", run)
			for k, v := range mid.Values {
				if k != "scenarios" {
					p.AddTag(k, v)
				}
			}
			writeApi.WritePoint(p)
		}
		logrus.Infof("wrote [%d] points for [%s] dataset [%s]", len(samples), run, dataset)
	}
	return nil
}
