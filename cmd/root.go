package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iot-sim/iot-sim/sim/iot"
	"github.com/iot-sim/iot-sim/sim/metrics"
	"github.com/iot-sim/iot-sim/sim/trace"
)

var (
	// CLI flags for the run itself
	seed       int64   // Seed for arrival jitter and probabilistic routing
	horizon    float64 // Simulation end time (in time units)
	logLevel   string  // Log verbosity level
	configPath string  // Scenario YAML, flags override its values

	// CLI flags for the gateway and cloud tiers
	servers        int     // Gateway server slots
	machines       int     // Cloud machine slots
	localTime      float64 // Local processing time at the gateway
	cloudTime      float64 // Processing time on a cloud machine
	handoff        bool    // Charge a forwarding delay before acquiring a cloud machine
	handoffTime    float64 // Forwarding delay
	priorityLevels int     // Number of device priority classes

	// CLI flags for routing
	policy       string  // Routing policy: local, counter, probabilistic
	everyN       int     // Counter policy: escalate every Nth request
	counterStart int     // Counter policy: initial counter value
	probability  float64 // Probabilistic policy: escalation probability

	// CLI flags for the arrival process
	arrivalMode  string  // Arrival mode: jitter, fixed-rate
	initialBurst int     // Devices created at time 0
	meanInterval float64 // Mean time between devices
	jitter       float64 // Jitter mode: half-width of the interval band
	discrete     bool    // Jitter mode: integer interval draws
	deviceCount  int     // Fixed-rate mode: number of named devices

	// Output flags
	recordsOut string // Latency records as JSON
	metricsOut string // Prometheus text exposition
	traceLevel string // Decision trace level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "iot-sim",
	Short: "Discrete-event simulator for IoT gateway/cloud offloading",
}

// runCmd executes the simulation using a scenario file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the IoT offloading simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q; valid: none, decisions", traceLevel)
		}

		sc, err := resolveScenario(configPath, cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Starting simulation: seed=%d, horizon=%.1f, servers=%d, machines=%d, policy=%s",
			sc.Seed, sc.Horizon, sc.Gateway.Servers, sc.Cloud.Machines, sc.Routing.Policy)

		startTime := time.Now()

		recorder := metrics.NewRecorder()
		var tr *trace.SimulationTrace
		if trace.TraceLevel(traceLevel) == trace.TraceLevelDecisions {
			tr = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		}

		model, err := iot.NewModel(sc, recorder, tr)
		if err != nil {
			logrus.Fatalf("Failed to build model: %v", err)
		}
		res := model.Run()

		out := cmd.OutOrStdout()
		res.Print(out)
		recorder.Print(out)
		if tr != nil {
			printTraceSummary(out, trace.Summarize(tr))
		}

		if recordsOut != "" {
			if err := recorder.SaveRecords(recordsOut); err != nil {
				logrus.Fatalf("Failed to write records: %v", err)
			}
			logrus.Infof("Latency records written to %s", recordsOut)
		}
		if metricsOut != "" {
			if err := recorder.WritePrometheus(metricsOut); err != nil {
				logrus.Fatalf("Failed to write metrics: %v", err)
			}
			logrus.Infof("Metrics written to %s", metricsOut)
		}

		logrus.Infof("Simulation complete in %v", time.Since(startTime))
	},
}

// defaultsCmd prints the built-in scenario as YAML, a starting point for --config
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default scenario as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := iot.DefaultScenario().YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// resolveScenario loads the scenario file (or the defaults when path is
// empty), applies explicitly set flags on top and validates the result.
func resolveScenario(path string, flags *pflag.FlagSet) (iot.Scenario, error) {
	sc := iot.DefaultScenario()
	if path != "" {
		loaded, err := iot.LoadScenario(path)
		if err != nil {
			return iot.Scenario{}, err
		}
		sc = loaded
	}
	applyFlagOverrides(flags, &sc)
	if err := sc.Validate(); err != nil {
		return iot.Scenario{}, err
	}
	return sc, nil
}

// applyFlagOverrides copies every flag the user set on the command line
// into sc. Flags left at their default never override the scenario file.
func applyFlagOverrides(flags *pflag.FlagSet, sc *iot.Scenario) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "seed":
			sc.Seed = seed
		case "horizon":
			sc.Horizon = horizon
		case "servers":
			sc.Gateway.Servers = servers
		case "local-time":
			sc.Gateway.ProcessTime = localTime
		case "priority-levels":
			sc.Gateway.PriorityLevels = priorityLevels
		case "machines":
			sc.Cloud.Machines = machines
		case "cloud-time":
			sc.Cloud.ProcessTime = cloudTime
		case "handoff":
			sc.Cloud.Handoff = handoff
		case "handoff-time":
			sc.Cloud.HandoffTime = handoffTime
		case "policy":
			sc.Routing.Policy = policy
		case "every-n":
			sc.Routing.EveryN = everyN
		case "counter-start":
			sc.Routing.CounterStart = counterStart
		case "probability":
			sc.Routing.Probability = probability
		case "arrival-mode":
			sc.Arrival.Mode = arrivalMode
		case "initial-burst":
			sc.Arrival.InitialBurst = initialBurst
		case "mean-interval":
			sc.Arrival.MeanInterval = meanInterval
		case "jitter":
			sc.Arrival.Jitter = jitter
		case "discrete":
			sc.Arrival.Discrete = discrete
		case "device-count":
			sc.Arrival.DeviceCount = deviceCount
		}
	})
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Routing Trace ===")
	fmt.Fprintf(w, "Decisions          : %d\n", ts.TotalDecisions)
	fmt.Fprintf(w, "Local              : %d\n", ts.LocalCount)
	fmt.Fprintf(w, "Escalated          : %d\n", ts.EscalatedCount)
	fmt.Fprintf(w, "Escalation fraction: %.4f\n", ts.EscalationFraction)
	names := make([]string, 0, len(ts.PolicyDistribution))
	for name := range ts.PolicyDistribution {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  policy %-12s: %d\n", name, ts.PolicyDistribution[name])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags attaches the scenario flags to fs. Defaults mirror
// iot.DefaultScenario so that --help shows the effective values.
func registerRunFlags(fs *pflag.FlagSet) {
	def := iot.DefaultScenario()

	fs.Int64Var(&seed, "seed", def.Seed, "Seed for arrival jitter and probabilistic routing")
	fs.Float64Var(&horizon, "horizon", def.Horizon, "Simulation end time (events after it are discarded)")
	fs.StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.StringVar(&configPath, "config", "", "Scenario YAML file (print one with: iot-sim defaults); explicit flags take precedence")

	// Tier sizing
	fs.IntVar(&servers, "servers", def.Gateway.Servers, "Number of gateway server slots")
	fs.Float64Var(&localTime, "local-time", def.Gateway.ProcessTime, "Gateway local processing time")
	fs.IntVar(&priorityLevels, "priority-levels", def.Gateway.PriorityLevels, "Number of device priority classes (device i gets i mod levels)")
	fs.IntVar(&machines, "machines", def.Cloud.Machines, "Number of cloud machine slots")
	fs.Float64Var(&cloudTime, "cloud-time", def.Cloud.ProcessTime, "Cloud processing time")
	fs.BoolVar(&handoff, "handoff", def.Cloud.Handoff, "Charge a forwarding delay before acquiring a cloud machine")
	fs.Float64Var(&handoffTime, "handoff-time", def.Cloud.HandoffTime, "Forwarding delay when --handoff is set")

	// Routing
	fs.StringVar(&policy, "policy", def.Routing.Policy, "Routing policy (local, counter, probabilistic)")
	fs.IntVar(&everyN, "every-n", def.Routing.EveryN, "Counter policy: escalate every Nth request")
	fs.IntVar(&counterStart, "counter-start", def.Routing.CounterStart, "Counter policy: initial counter value")
	fs.Float64Var(&probability, "probability", def.Routing.Probability, "Probabilistic policy: escalation probability")

	// Arrivals
	fs.StringVar(&arrivalMode, "arrival-mode", def.Arrival.Mode, "Arrival mode (jitter, fixed-rate)")
	fs.IntVar(&initialBurst, "initial-burst", def.Arrival.InitialBurst, "Devices created at time 0")
	fs.Float64Var(&meanInterval, "mean-interval", def.Arrival.MeanInterval, "Mean time between device arrivals")
	fs.Float64Var(&jitter, "jitter", def.Arrival.Jitter, "Jitter mode: interval drawn uniformly from mean±jitter")
	fs.BoolVar(&discrete, "discrete", def.Arrival.Discrete, "Jitter mode: draw whole time units")
	fs.IntVar(&deviceCount, "device-count", def.Arrival.DeviceCount, "Fixed-rate mode: number of devices sharing the mean interval")

	// Outputs
	fs.StringVar(&recordsOut, "records-out", "", "Write latency records to this JSON file")
	fs.StringVar(&metricsOut, "metrics-out", "", "Write Prometheus text metrics to this file")
	fs.StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Routing trace level (none, decisions)")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(defaultsCmd)
}
