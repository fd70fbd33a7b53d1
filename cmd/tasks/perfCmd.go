package tasks

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dTodo/cmd/util"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var log = logger.GetLogger("cmd")

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dtodo collections",
		Long:    "Runs benchmarks against the configured collection. All records created by the benchmarks are titled with the prefix " + perfTitlePrefix + " and removed afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfTitlePrefix = "__perf"
	perfNumThreads  = 10
	perfRecords     = 100
	perfSkip        = make([]string, 0)
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	name   string
	result testing.BenchmarkResult
	timer  metrics.Timer
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. create,mixed)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "records"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many records to create before the read and update benchmarks"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfRecords = max(viper.GetInt("records"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dtodo collections")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Collection: %s\n", collection.Name())
	fmt.Printf("Threads: %d, Records: %d\n", perfNumThreads, perfRecords)
	fmt.Println()

	// seed records for the read and update benchmarks
	ids := make([]todo.ID, 0, perfRecords)
	for i := 0; i < perfRecords; i++ {
		created, err := todoModel.Create(fmt.Sprintf("%s-%d", perfTitlePrefix, i))
		if err != nil {
			return fmt.Errorf("failed to create test records: %w", err)
		}
		ids = append(ids, created.ID)
	}
	defer cleanup()

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	tests := []struct {
		name string
		op   func(i int) error
	}{
		{"create", func(i int) error {
			_, err := todoModel.Create(perfTitlePrefix + "-create")
			return err
		}},
		{"find", func(i int) error {
			_, err := todoModel.Read(todo.Query{"completed": i%2 == 0})
			return err
		}},
		{"find-id", func(i int) error {
			_, err := todoModel.Read(ids[i%len(ids)])
			return err
		}},
		{"find-all", func(i int) error {
			_, err := todoModel.Read(nil)
			return err
		}},
		{"update", func(i int) error {
			_, err := todoModel.Update(ids[i%len(ids)], todo.Patch{"completed": i%2 == 0})
			return err
		}},
		{"count", func(i int) error {
			_, err := util.Count(collection)
			return err
		}},
		{"mixed", func(i int) error {
			var err error
			switch i % 4 {
			case 0:
				_, err = todoModel.Update(ids[i%len(ids)], todo.Patch{"title": perfTitlePrefix + "-mixed"})
			case 1:
				_, err = todoModel.Read(ids[i%len(ids)])
			case 2:
				_, err = todoModel.Read(todo.Query{"completed": true})
			case 3:
				_, err = util.Count(collection)
			}
			return err
		}},
	}

	var results []perfResult
	for _, test := range tests {
		if shouldSkip(test.name) {
			results = append(results, perfResult{name: test.name})
			printResult(perfResult{name: test.name})
			continue
		}
		res := runBenchmark(test.name, metrics.GetOrRegisterTimer(test.name, registry), test.op)
		results = append(results, res)
		printResult(res)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runBenchmark runs op in parallel and records the latency of every call in timer
func runBenchmark(name string, timer metrics.Timer, op func(i int) error) perfResult {
	result := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := op(counter); err != nil {
					log.Warningf("(%s) - error: %v", name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
	return perfResult{name: name, result: result, timer: timer}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// cleanup removes all records created by the benchmarks
func cleanup() {
	todos, err := todoModel.Read(nil)
	if err != nil {
		log.Errorf("failed to read records for cleanup: %v", err)
		return
	}
	removed := 0
	for _, t := range todos {
		if !strings.HasPrefix(t.Title, perfTitlePrefix) {
			continue
		}
		if _, err := todoModel.Remove(t.ID); err != nil {
			log.Errorf("failed to remove record %d: %v", t.ID, err)
			continue
		}
		removed++
	}
	fmt.Printf("\nremoved %d test records\n", removed)
}

// latencies returns p50 and p99 of the timer
func latencies(timer metrics.Timer) (time.Duration, time.Duration) {
	if timer == nil || timer.Count() == 0 {
		return 0, 0
	}
	ps := timer.Snapshot().Percentiles([]float64{0.5, 0.99})
	return time.Duration(ps[0]), time.Duration(ps[1])
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(res perfResult) {
	if res.result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", res.name)
		return
	}

	nsPerOp := math.Max(float64(res.result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p50, p99 := latencies(res.timer)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		res.name, nsPerOp, time.Duration(nsPerOp), opsPerSec, p50, p99)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P99", "Skipped",
		"Endpoints", "Collection", "Serializer", "Transport", "Local", "Threads", "Records",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, res := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if res.result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(res.result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p50, p99 := latencies(res.timer)

		row := []string{
			res.name,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p50.String(),
			p99.String(),
			skipped,
			viper.GetString("endpoints"),
			collection.Name(),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			viper.GetString("local"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfRecords),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", res.name, err)
		}
	}

	return nil
}
