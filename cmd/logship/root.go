package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"logship/pkg/config"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LOGSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:   "logship",
		Short: "logship ships application logs to a local file and a document store",
		Long: `logship accepts log events over TCP/UDP, writes them to a rolling local
file through a bounded ring buffer, and batches them to an Elasticsearch
compatible document store with slow-send alerting.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "YAML configuration file")
	flags.String("log-level", "", "override log.level (debug, info, warn, error)")
	flags.String("redis-addr", "", "override redis.address")
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("redis.address", flags.Lookup("redis-addr"))

	root.AddCommand(newServeCmd(v), newCheckCmd(v))
	return root
}

// loadConfig reads the file named by --config (or LOGSHIP_CONFIG) and
// applies flag and environment overrides on top. The raw document is
// returned for reload bookkeeping; it is nil without a file.
func loadConfig(v *viper.Viper) (*config.Config, []byte, error) {
	cfg := config.DefaultConfig()
	var raw []byte
	if path := v.GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		if cfg, err = config.Parse(data); err != nil {
			return nil, nil, err
		}
		raw = data
	}

	if s := v.GetString("log.level"); s != "" {
		cfg.Log.Level = s
	}
	if s := v.GetString("redis.address"); s != "" {
		cfg.Redis.Address = s
	}
	if s := v.GetString("metrics.addr"); s != "" {
		cfg.Metrics.Addr = s
	}
	if s := v.GetString("ingest.tcp_addr"); s != "" {
		cfg.Ingest.TCPAddr = s
	}
	if s := v.GetString("ingest.udp_addr"); s != "" {
		cfg.Ingest.UDPAddr = s
	}
	return cfg, raw, nil
}
