// Package config はhotta_extractorコマンドの設定管理を行います。
// フラグ・環境変数（HOTTA_*）・.env・設定ファイルの順に解決し、
// 検証と既定値の補完を一度だけ行って models.ExtractionRequest を作ります。
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
)

// Version はコマンドのバージョンです
const Version = "0.1.0"

const (
	configName = ".hotta_extractor"
	envPrefix  = "HOTTA"
)

// フラグ名（設定キーと共通）
const (
	KeyGameDir      = "game-dir"
	KeyOutput       = "output"
	KeyKey          = "key"
	KeyFilter       = "filter"
	KeySkip         = "skip"
	KeyDebug        = "debug"
	KeyMarker       = "marker"
	KeyPackagesOnly = "packages-only"
	KeyFormat       = "format"
	KeyDryRun       = "dry-run"
	KeyConfig       = "config"
)

// DefaultFilters は既定の包含パターンです
var DefaultFilters = []string{
	"Hotta/Content/Resources/CoreBlueprints",
	"Hotta/Content/Resources/Dialogues",
	"Hotta/Content/Resources/Icon",
	"Hotta/Content/Resources/Text",
	"Hotta/Content/Resources/UI",
	"Hotta/Content/SevenForest/Data",
}

// DefaultSkip は既定の除外パターンです
var DefaultSkip = []string{"DA_TamingMonster"}

// DefaultMarker は既定の構造条件（インデックスキーに含まれる語）です
const DefaultMarker = "taming"

var (
	// ErrInvalidConfig は設定値が不正な場合のエラー
	ErrInvalidConfig = errors.New("設定が不正です")

	// ErrConfigFile は設定ファイルを読み込めない場合のエラー
	ErrConfigFile = errors.New("設定ファイルを読み込めませんでした")
)

// Options はフラグや設定ファイルから読み込んだ未検証の設定です
type Options struct {
	GameDir      string   `mapstructure:"game-dir" validate:"required"`
	OutputDir    string   `mapstructure:"output"`
	Key          string   `mapstructure:"key" validate:"omitempty,aeskey"`
	Filters      []string `mapstructure:"filter" validate:"dive,required"`
	Skip         []string `mapstructure:"skip" validate:"dive,required"`
	Debug        bool     `mapstructure:"debug"`
	Marker       string   `mapstructure:"marker"`
	PackagesOnly bool     `mapstructure:"packages-only"`
	Format       string   `mapstructure:"format" validate:"oneof=json yaml yml"`
	DryRun       bool     `mapstructure:"dry-run"`
}

// validate はキャッシュされたバリデータです
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("aeskey", func(fl validator.FieldLevel) bool {
		_, err := crypto.ParseAESKey(fl.Field().String())
		return err == nil
	})
	return v
}

// AddFlags はコマンドのフラグを定義します
func AddFlags(fs *pflag.FlagSet) {
	fs.StringP(KeyOutput, "O", "", "output directory (default \"<GAME_DIR>/output\")")
	fs.StringP(KeyKey, "K", "", "AES-256 key for encrypted archives (hex, optional 0x prefix)")
	fs.StringSliceP(KeyFilter, "F", DefaultFilters, "include asset paths containing any of these substrings")
	fs.StringSliceP(KeySkip, "S", DefaultSkip, "skip asset paths containing any of these substrings")
	fs.BoolP(KeyDebug, "D", false, "enable debug output")
	fs.StringP(KeyMarker, "M", DefaultMarker, "only decode assets whose index key contains this token (case-insensitive, empty disables)")
	fs.Bool(KeyPackagesOnly, true, "only decode .uasset and .umap packages")
	fs.StringP(KeyFormat, "f", models.FormatJSON, "object output format (json or yaml)")
	fs.BoolP(KeyDryRun, "n", false, "list selected assets without decoding them")
	fs.StringP(KeyConfig, "c", "", "config file (default is ./.hotta_extractor.yaml or $HOME/.hotta_extractor.yaml)")
}

// LoadDotEnv はカレントディレクトリの.envを読み込みます。ファイルがなくてもエラーにしません。
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load はフラグ・環境変数・設定ファイルから設定を読み込み、検証済みのリクエストを返します。
// args の先頭要素はGAME_DIRとして扱います。
func Load(v *viper.Viper, fs *pflag.FlagSet, args []string) (models.ExtractionRequest, error) {
	opts, err := ReadOptions(v, fs, args)
	if err != nil {
		return models.ExtractionRequest{}, err
	}
	return Resolve(opts)
}

// ReadOptions は各設定元を束ねて Options を作ります
func ReadOptions(v *viper.Viper, fs *pflag.FlagSet, args []string) (Options, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Options{}, err
	}
	if err := v.BindEnv(KeyGameDir); err != nil {
		return Options{}, err
	}
	if len(args) > 0 {
		v.Set(KeyGameDir, args[0])
	}

	if err := readConfigFile(v); err != nil {
		return Options{}, err
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return opts, nil
}

// readConfigFile は --config で指定された、または既定の場所にある設定ファイルを読み込みます
func readConfigFile(v *viper.Viper) error {
	cfgFile := v.GetString(KeyConfig)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && cfgFile == "" {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfigFile, err)
}

// Resolve は設定を検証し、既定値を補完したリクエストを返します
func Resolve(opts Options) (models.ExtractionRequest, error) {
	opts.GameDir = strings.TrimSpace(opts.GameDir)
	opts.Key = strings.TrimSpace(opts.Key)
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if opts.Format == "" {
		opts.Format = models.FormatJSON
	}

	if err := validate.Struct(opts); err != nil {
		return models.ExtractionRequest{}, validationError(err)
	}

	output := opts.OutputDir
	if output == "" {
		output = filepath.Join(opts.GameDir, "output")
	}
	format := opts.Format
	if format == "yml" {
		format = models.FormatYAML
	}

	return models.ExtractionRequest{
		GameDir:   opts.GameDir,
		OutputDir: output,
		Key:       opts.Key,
		Filters: models.FilterSet{
			Include: append([]string(nil), opts.Filters...),
			Skip:    append([]string(nil), opts.Skip...),
		},
		Marker:       opts.Marker,
		PackagesOnly: opts.PackagesOnly,
		Format:       format,
		DryRun:       opts.DryRun,
		Debug:        opts.Debug,
	}, nil
}

// validationError は検証エラーを読みやすいメッセージにまとめます
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s は必須です", e.Field()))
		case "aeskey":
			msgs = append(msgs, fmt.Sprintf("%s は64桁の16進数のAESキーである必要があります", e.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s は %s のいずれかである必要があります (値: %v)", e.Field(), e.Param(), e.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s が不正です (%s)", e.Field(), e.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
