package conf

import (
	"os"
	"strings"
	"time"

	"github.com/carusyte/stockchart/model"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Args Global Application Arguments
var Args Arguments

//Tushare Pro endpoints
const (
	TushareURL    = "http://api.tushare.pro"
	TushareAltURL = "http://api.waditu.com"
)

//Arguments arguments struct type
type Arguments struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFile   string `mapstructure:"log_file"`
	Profiling string `mapstructure:"profiling"`
	Tushare   struct {
		Token string   `mapstructure:"token"`
		URLs  []string `mapstructure:"urls"`
		//Timeout http timeout in seconds
		Timeout int `mapstructure:"timeout"`
	}
	Network struct {
		//Proxy in the form of socks5://host:port or http://host:port
		Proxy            string `mapstructure:"proxy"`
		DefaultUserAgent string `mapstructure:"default_user_agent"`
	}
	Retry struct {
		MaxTries  int           `mapstructure:"max_tries"`
		BaseDelay time.Duration `mapstructure:"base_delay"`
		MaxDelay  time.Duration `mapstructure:"max_delay"`
	}
	Output struct {
		DataDir  string `mapstructure:"data_dir"`
		ChartDir string `mapstructure:"chart_dir"`
		CSVBOM   bool   `mapstructure:"csv_bom"`
	}
	Chart struct {
		Type            string   `mapstructure:"type"`
		Volume          bool     `mapstructure:"volume"`
		Width           int      `mapstructure:"width"`
		Height          int      `mapstructure:"height"`
		Fonts           []string `mapstructure:"fonts"`
		Snapshot        bool     `mapstructure:"snapshot"`
		SnapshotTimeout int      `mapstructure:"snapshot_timeout"`
	}
	GCS struct {
		UseProxy bool   `mapstructure:"use_proxy"`
		Bucket   string `mapstructure:"bucket"`
		Prefix   string `mapstructure:"prefix"`
		Timeout  int    `mapstructure:"timeout"`
	}
	Demo struct {
		Identifier string `mapstructure:"identifier"`
		Start      string `mapstructure:"start"`
		End        string `mapstructure:"end"`
	}
}

func init() {
	setDefaults()
	if e := Load(""); e != nil {
		logrus.Warnf("config file error: %+v", e)
	}
}

//Load reads configuration from file, falling back to the default search paths
//when file is empty. A missing config file is not an error, environment
//variables and defaults still apply.
func Load(file string) (e error) {
	// .env is optional
	if e = godotenv.Load(); e != nil && !os.IsNotExist(errors.Cause(e)) {
		logrus.Debugf("unable to load .env: %+v", e)
	}
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("stockchart")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix("stockchart")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if e = v.ReadInConfig(); e != nil {
		if _, ok := e.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return errors.Wrapf(e, "failed to read config %s", file)
		}
		logrus.Debug("no config file found, using defaults")
	}
	if e = v.Unmarshal(&Args); e != nil {
		return errors.WithStack(e)
	}
	if t, ok := os.LookupEnv("TUSHARE_TOKEN"); ok && t != "" {
		Args.Tushare.Token = t
	}
	return checkConfig()
}

// viper only resolves env for keys it knows about
func bindEnv(v *viper.Viper) {
	for _, k := range []string{
		"log_level", "log_file", "profiling",
		"tushare.token", "tushare.timeout",
		"network.proxy",
		"retry.max_tries", "retry.base_delay", "retry.max_delay",
		"output.data_dir", "output.chart_dir", "output.csv_bom",
		"chart.type", "chart.volume", "chart.snapshot",
		"gcs.bucket", "gcs.prefix",
		"demo.identifier", "demo.start", "demo.end",
	} {
		v.BindEnv(k)
	}
}

func checkConfig() error {
	if Args.Retry.MaxTries < 1 {
		return errors.Errorf("retry.max_tries must be >= 1, but is %d", Args.Retry.MaxTries)
	}
	if Args.Retry.MaxDelay < Args.Retry.BaseDelay {
		return errors.Errorf("retry.max_delay (%v) must not be less than retry.base_delay (%v)",
			Args.Retry.MaxDelay, Args.Retry.BaseDelay)
	}
	ct, e := model.ParseChartType(Args.Chart.Type)
	if e != nil {
		return errors.WithMessage(e, "invalid chart.type")
	}
	Args.Chart.Type = string(ct)
	if len(Args.Tushare.URLs) == 0 {
		Args.Tushare.URLs = []string{TushareURL, TushareAltURL}
	}
	return nil
}

func setDefaults() {
	Args.LogLevel = "info"
	Args.Tushare.URLs = []string{TushareURL, TushareAltURL}
	Args.Tushare.Timeout = 30
	Args.Network.DefaultUserAgent = "stockchart/1.0"
	Args.Retry.MaxTries = 5
	Args.Retry.BaseDelay = 2 * time.Second
	Args.Retry.MaxDelay = 60 * time.Second
	Args.Output.DataDir = "stock_data"
	Args.Output.ChartDir = "stock_charts"
	Args.Chart.Type = string(model.CANDLESTICK)
	Args.Chart.Volume = true
	Args.Chart.Width = 1200
	Args.Chart.Height = 800
	Args.Chart.SnapshotTimeout = 45
	Args.GCS.Timeout = 60
	Args.Demo.Identifier = "贵州茅台"
	Args.Demo.Start = "20230101"
	Args.Demo.End = "20231231"
}
