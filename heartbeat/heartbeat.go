package heartbeat

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	cpuUtil "github.com/shirou/gopsutil/v3/cpu"
	memUtil "github.com/shirou/gopsutil/v3/mem"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/endpoint"
	"flashcat.cloud/statsgraf/sinks"
)

// seconds spent sampling cpu usage inside each report
const collinterval = 3

// Heartbeat periodically tells the control plane this bridge is alive,
// together with a quick health sketch: cpu/mem usage and the per-sink queue
// depth.
type Heartbeat struct {
	conf   *config.HeartbeatConfig
	url    string
	client *http.Client
}

func New() (*Heartbeat, error) {
	conf := config.Config.Heartbeat

	ep, err := endpoint.New(conf.Url)
	if err != nil {
		return nil, err
	}
	url, err := ep.BuildAddress("heartbeat", "")
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(conf.Timeout) * time.Millisecond
	return &Heartbeat{
		conf: conf,
		url:  url,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: time.Duration(conf.DialTimeout) * time.Millisecond,
				}).DialContext,
				ResponseHeaderTimeout: timeout,
				MaxIdleConnsPerHost:   conf.MaxIdleConnsPerHost,
			},
			Timeout: timeout,
		},
	}, nil
}

func (h *Heartbeat) Run(ctx context.Context) error {
	version := config.Version
	versions := strings.Split(version, "-")
	if len(versions) > 1 {
		version = versions[0]
	}

	interval := h.conf.Interval
	if interval <= collinterval+1 {
		interval = collinterval + 1
	}
	duration := time.Second * time.Duration(interval-collinterval)

	for {
		h.report(ctx, version)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(duration):
		}
	}
}

func (h *Heartbeat) report(ctx context.Context, version string) {
	data := map[string]interface{}{
		"agent_version": version,
		"os":            runtime.GOOS,
		"arch":          runtime.GOARCH,
		"hostname":      config.Config.GetHostname(),
		"cpu_num":       runtime.NumCPU(),
		"cpu_util":      cpuUsage(ctx),
		"mem_util":      memUsage(),
		"unixtime":      time.Now().UnixMilli(),
		"sink_pending":  sinks.Pendings(),
	}

	json := jsoniter.ConfigCompatibleWithStandardLibrary
	bs, err := json.Marshal(data)
	if err != nil {
		log.Println("E! failed to marshal heartbeat request:", err)
		return
	}

	var buf bytes.Buffer
	g := gzip.NewWriter(&buf)
	if _, err = g.Write(bs); err != nil {
		log.Println("E! failed to write gzip buffer:", err)
		return
	}
	if err = g.Close(); err != nil {
		log.Println("E! failed to close gzip buffer:", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.url, &buf)
	if err != nil {
		log.Println("E! failed to new heartbeat request:", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("User-Agent", "statsgraf/"+version)

	for i := 0; i+1 < len(h.conf.Headers); i += 2 {
		req.Header.Add(h.conf.Headers[i], h.conf.Headers[i+1])
		if h.conf.Headers[i] == "Host" {
			req.Host = h.conf.Headers[i+1]
		}
	}

	if h.conf.BasicAuthPass != "" {
		req.SetBasicAuth(h.conf.BasicAuthUser, h.conf.BasicAuthPass)
	}

	res, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			log.Println("E! failed to do heartbeat:", err)
		}
		return
	}

	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.Println("E! failed to read heartbeat response body:", err, " status code:", res.StatusCode)
		return
	}

	if res.StatusCode/100 != 2 {
		log.Println("E! heartbeat status code:", res.StatusCode, " response:", string(body))
		return
	}

	if config.Config.DebugMode {
		log.Println("D! heartbeat response:", string(body), "status code:", res.StatusCode)
	}
}

func memUsage() float64 {
	vm, err := memUtil.VirtualMemory()
	if err != nil {
		log.Println("E! failed to get vmstat:", err)
		return 0
	}
	return vm.UsedPercent
}

func cpuUsage(ctx context.Context) float64 {
	var (
		lastTotal  float64
		lastActive float64
		total      float64
		active     float64
	)

	// first
	times, err := cpuUtil.Times(false)
	if err != nil {
		log.Println("E! failed to collect cpu_util:", err)
		return 0
	}
	for _, cts := range times {
		lastTotal = totalCPUTime(cts)
		lastActive = activeCPUTime(cts)
		break
	}

	select {
	case <-ctx.Done():
		return 0
	case <-time.After(time.Second * collinterval):
	}

	// second
	times, err = cpuUtil.Times(false)
	if err != nil {
		log.Println("E! failed to collect cpu_util:", err)
		return 0
	}
	for _, cts := range times {
		total = totalCPUTime(cts)
		active = activeCPUTime(cts)
		break
	}

	totalDelta := total - lastTotal
	if totalDelta < 0 {
		log.Println("W! current total CPU time is less than previous total CPU time")
		return 0
	}
	if totalDelta == 0 {
		return 0
	}

	return 100 * (active - lastActive) / totalDelta
}

func totalCPUTime(t cpuUtil.TimesStat) float64 {
	return t.User + t.System + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal + t.Idle
}

func activeCPUTime(t cpuUtil.TimesStat) float64 {
	return totalCPUTime(t) - t.Idle
}
