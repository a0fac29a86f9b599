// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package confighelpers merges the configuration sources of a binary into
// one koanf tree: flag defaults, then files, S3, the inline string and the
// environment, with explicitly set flags applied last.
package confighelpers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/mitchellh/mapstructure"
	pkgerrors "github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/cmd/genericconf"
)

const s3Timeout = time.Minute

func PrintErrorAndExit(err error, usage func(string)) {
	if err != nil && errors.Is(err, flag.ErrHelp) {
		usage(os.Args[0])
		os.Exit(0)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}

// GetVersion reports the vcs revision and time the binary was built from.
func GetVersion() (string, string) {
	revision, vcsTime := "development", "development"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return revision, vcsTime
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}
	return revision, vcsTime
}

// parserFor picks the parser by file extension; anything but yaml is json.
func parserFor(name string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return json.Parser()
	}
}

func BeginCommonParse(f *flag.FlagSet, args []string) (*koanf.Koanf, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if f.NArg() != 0 {
		return nil, fmt.Errorf("unexpected parameter: %s", f.Arg(0))
	}

	k := koanf.New(".")
	// Flag defaults come first so that every later source can override them.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	configFiles := k.Strings("conf.file")
	if len(configFiles) == 0 {
		if _, err := os.Stat(genericconf.DefaultConfigFile); err == nil {
			configFiles = []string{genericconf.DefaultConfigFile}
		}
	}
	for _, configFile := range configFiles {
		if len(configFile) == 0 {
			continue
		}
		if err := k.Load(file.Provider(configFile), parserFor(configFile)); err != nil {
			return nil, pkgerrors.Wrap(err, "error loading local config file")
		}
	}

	if err := loadS3Variables(k); err != nil {
		return nil, pkgerrors.Wrap(err, "error loading S3 settings")
	}

	if configString := k.String("conf.string"); len(configString) > 0 {
		if err := k.Load(rawbytes.Provider([]byte(configString)), json.Parser()); err != nil {
			return nil, pkgerrors.Wrap(err, "error loading config string")
		}
	}

	if err := loadEnvironmentVariables(k); err != nil {
		return nil, pkgerrors.Wrap(err, "error loading environment variables")
	}

	// Any settings provided on command line override items in environment and files
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, pkgerrors.Wrap(err, "error loading command line")
	}
	return k, nil
}

func loadS3Variables(k *koanf.Koanf) error {
	var config genericconf.S3Config
	if err := k.Unmarshal("conf.s3", &config); err != nil {
		return err
	}
	if !config.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()
	data, err := downloadS3Object(ctx, &config)
	if err != nil {
		return err
	}
	return k.Load(rawbytes.Provider(data), parserFor(config.ObjectKey))
}

// s3Client uses the configured keys, or the default AWS credential chain
// when none are given.
func s3Client(ctx context.Context, config *genericconf.S3Config) (*s3.Client, error) {
	if config.AccessKey != "" {
		return s3.New(s3.Options{
			Region:      config.Region,
			Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")),
		}), nil
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsConfig), nil
}

func downloadS3Object(ctx context.Context, config *genericconf.S3Config) ([]byte, error) {
	client, err := s3Client(ctx, config)
	if err != nil {
		return nil, err
	}
	buffer := manager.NewWriteAtBuffer([]byte{})
	_, err = manager.NewDownloader(client).Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(config.Bucket),
		Key:    aws.String(config.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download failed for s3://%s/%s: %w", config.Bucket, config.ObjectKey, err)
	}
	return buffer.Bytes(), nil
}

// envKey maps PREFIX_FOO__BAR_BAZ to foo-bar.baz.
func envKey(prefix string) func(string) string {
	return func(s string) string {
		s = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix+"_")), "__", "-")
		return strings.ReplaceAll(s, "_", ".")
	}
}

func loadEnvironmentVariables(k *koanf.Koanf) error {
	envPrefix := k.String("conf.env-prefix")
	if len(envPrefix) == 0 {
		return nil
	}
	return k.Load(env.Provider(envPrefix+"_", ".", envKey(envPrefix)), nil)
}

func EndCommonParse(k *koanf.Koanf, config interface{}) error {
	decoderConfig := mapstructure.DecoderConfig{
		ErrorUnused: true,

		// Default values
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Metadata:         nil,
		Result:           config,
		WeaklyTypedInput: true,
	}
	return k.UnmarshalWithConf("", config, koanf.UnmarshalConf{DecoderConfig: &decoderConfig})
}

// DumpConfig prints the merged configuration as JSON, with the given keys
// overridden, and exits.
func DumpConfig(k *koanf.Koanf, extraOverrideFields map[string]interface{}) error {
	overrideFields := map[string]interface{}{"conf.dump": false}
	for key, value := range extraOverrideFields {
		overrideFields[key] = value
	}
	if err := k.Load(confmap.Provider(overrideFields, "."), nil); err != nil {
		return pkgerrors.Wrap(err, "error removing extra parameters before dump")
	}
	c, err := k.Marshal(json.Parser())
	if err != nil {
		return pkgerrors.Wrap(err, "unable to marshal config file to JSON")
	}
	fmt.Println(string(c))
	os.Exit(0)
	return errors.New("unreachable")
}
