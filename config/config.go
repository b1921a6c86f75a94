package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"path"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/toolkits/pkg/file"

	"flashcat.cloud/statsgraf/endpoint"
	"flashcat.cloud/statsgraf/pkg/cfg"
	"flashcat.cloud/statsgraf/pkg/set"
)

const defaultProbeAddr = "223.5.5.5:80"

var envVarEscaper = strings.NewReplacer(
	`"`, `\"`,
	`\`, `\\`,
)

type Global struct {
	PrintConfigs bool              `toml:"print_configs"`
	Hostname     string            `toml:"hostname"`
	OmitHostname bool              `toml:"omit_hostname"`
	Labels       map[string]string `toml:"labels"`
	DNSServers   []string          `toml:"dns_servers"`
}

type Log struct {
	FileName   string `toml:"file_name"`
	MaxSize    int    `toml:"max_size"`
	MaxAge     int    `toml:"max_age"`
	MaxBackups int    `toml:"max_backups"`
	LocalTime  bool   `toml:"local_time"`
	Compress   bool   `toml:"compress"`
}

type HTTP struct {
	Enable       bool   `toml:"enable"`
	Address      string `toml:"address"`
	PrintAccess  bool   `toml:"print_access"`
	RunMode      string `toml:"run_mode"`
	CertFile     string `toml:"cert_file"`
	KeyFile      string `toml:"key_file"`
	ReadTimeout  int    `toml:"read_timeout"`
	WriteTimeout int    `toml:"write_timeout"`
	IdleTimeout  int    `toml:"idle_timeout"`
}

// Listener is the statsd ingest socket.
type Listener struct {
	Enable            bool   `toml:"enable"`
	Address           string `toml:"address"`
	Protocol          string `toml:"protocol"`
	ReadBuffer        int    `toml:"read_buffer"`
	MaxTCPConnections int    `toml:"max_tcp_connections"`
}

type HeartbeatConfig struct {
	Enable              bool     `toml:"enable"`
	Url                 string   `toml:"url"`
	Interval            int64    `toml:"interval"`
	BasicAuthUser       string   `toml:"basic_auth_user"`
	BasicAuthPass       string   `toml:"basic_auth_pass"`
	Headers             []string `toml:"headers"`
	Timeout             int64    `toml:"timeout"`
	DialTimeout         int64    `toml:"dial_timeout"`
	MaxIdleConnsPerHost int      `toml:"max_idle_conns_per_host"`
}

type SelfMetrics struct {
	Enable   bool     `toml:"enable"`
	Interval Duration `toml:"interval"`
}

type ConfigType struct {
	// from console args
	ConfigDir string
	DebugMode bool
	TestMode  bool

	// from conf.d
	Global      Global           `toml:"global"`
	Log         Log              `toml:"log"`
	HTTP        *HTTP            `toml:"http"`
	Listener    *Listener        `toml:"listener"`
	Heartbeat   *HeartbeatConfig `toml:"heartbeat"`
	SelfMetrics SelfMetrics      `toml:"self_metrics"`
	Sinks       []SinkConfig     `toml:"sinks"`
}

var Config *ConfigType

func InitConfig(configDir string, debugMode, testMode bool) error {
	configFile := path.Join(configDir, "config.toml")
	if !file.IsExist(configFile) {
		return fmt.Errorf("configuration file(%s) not found", configFile)
	}

	Config = &ConfigType{
		ConfigDir: configDir,
		DebugMode: debugMode,
		TestMode:  testMode,
	}

	if err := cfg.LoadConfigs(configDir, Config); err != nil {
		return fmt.Errorf("failed to load configs of dir: %s err:%s", configDir, err)
	}

	if err := loadSinksDir(configDir); err != nil {
		return err
	}

	if len(Config.Sinks) == 0 && !testMode {
		return fmt.Errorf("no sinks configured in %s", configDir)
	}

	// sink names key the delivery queues, so they must be unique
	names := set.New[string]()
	for i := range Config.Sinks {
		if err := Config.Sinks[i].Validate(); err != nil {
			return err
		}
		if names.Has(Config.Sinks[i].Name) {
			return fmt.Errorf("duplicate sink name: %s", Config.Sinks[i].Name)
		}
		names.Add(Config.Sinks[i].Name)
	}

	Config.Global.Hostname = strings.TrimSpace(Config.Global.Hostname)

	if err := InitHostname(); err != nil {
		return err
	}

	if Config.Global.PrintConfigs {
		json := jsoniter.ConfigCompatibleWithStandardLibrary
		bs, err := json.MarshalIndent(Config, "", "    ")
		if err != nil {
			fmt.Println(err)
		} else {
			fmt.Println(string(bs))
		}
	}

	// If using test mode, the logs are output to standard output for easy viewing
	if testMode {
		Config.Log.FileName = "stdout"
	}

	return nil
}

// loadSinksDir appends sink definitions kept in their own files under
// <configDir>/sinks.d, so destinations can be dropped in without touching
// config.toml.
func loadSinksDir(configDir string) error {
	sinksDir := path.Join(configDir, "sinks.d")
	if !file.IsExist(sinksDir) {
		return nil
	}

	files, err := file.FilesUnder(sinksDir)
	if err != nil {
		return fmt.Errorf("failed to list files under: %s : %v", sinksDir, err)
	}

	for _, fpath := range files {
		if !strings.HasSuffix(fpath, "toml") {
			continue
		}
		var include struct {
			Sinks []SinkConfig `toml:"sinks"`
		}
		if err := cfg.LoadConfig(path.Join(sinksDir, fpath), &include); err != nil {
			return fmt.Errorf("failed to load sinks file: %s err: %v", fpath, err)
		}
		Config.Sinks = append(Config.Sinks, include.Sinks...)
	}

	return nil
}

func (c *ConfigType) GetHostname() string {
	ret := c.Global.Hostname

	name := Hostname.Get()
	if ret == "" {
		return name
	}

	ret = strings.Replace(ret, "$hostname", name, -1)
	ret = strings.Replace(ret, "$ip", c.GetHostIP(), -1)
	ret = os.Expand(ret, GetEnv)

	return ret
}

var (
	hostIPOnce sync.Once
	hostIP     string
)

func (c *ConfigType) GetHostIP() string {
	hostIPOnce.Do(func() {
		ip, err := GetOutboundIP()
		if err != nil {
			log.Println("W! failed to get outbound ip:", err)
			hostIP = Hostname.Get()
			return
		}
		hostIP = ip.String()
	})
	return hostIP
}

func GetEnv(key string) string {
	v := os.Getenv(key)
	return envVarEscaper.Replace(v)
}

func getLocalIP() (net.IP, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifs {
		if (iface.Flags & net.FlagUp) == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			log.Println("W! iface address error", err)
			continue
		}
		for _, addr := range addrs {
			if ip, ok := addr.(*net.IPNet); ok && ip.IP.IsLoopback() {
				continue
			} else {
				ip4 := ip.IP.To4()
				if ip4 == nil {
					continue
				}
				return ip4, nil
			}
		}
	}
	return nil, fmt.Errorf("no local ip found")
}

// GetOutboundIP gets the preferred outbound ip of this machine, probing the
// heartbeat destination when one is configured.
func GetOutboundIP() (net.IP, error) {
	addr := defaultProbeAddr
	if Config.Heartbeat != nil && Config.Heartbeat.Url != "" {
		if ep, err := endpoint.New(Config.Heartbeat.Url); err != nil {
			log.Printf("W! parse heartbeat url %s error %s", Config.Heartbeat.Url, err)
		} else {
			host := ep.Authority()
			if !strings.Contains(host, "localhost") && !strings.Contains(host, "127.0.0.1") {
				if _, _, err := net.SplitHostPort(host); err != nil {
					if ep.Scheme() == "http" {
						host += ":80"
					} else {
						host += ":443"
					}
				}
				addr = host
			}
		}
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		ip, err := getLocalIP()
		if err != nil {
			return nil, fmt.Errorf("failed to get local ip: %v", err)
		}
		return ip, nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP, nil
}

func GlobalLabels() map[string]string {
	ret := make(map[string]string)
	for k, v := range Config.Global.Labels {
		ret[k] = Expand(v)
	}
	return ret
}

func Expand(nv string) string {
	nv = strings.Replace(nv, "$hostname", Config.GetHostname(), -1)
	nv = strings.Replace(nv, "$ip", Config.GetHostIP(), -1)
	nv = os.Expand(nv, GetEnv)
	return nv
}
