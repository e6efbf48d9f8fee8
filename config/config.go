package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/arbishark/internal/adapters/marketdata"
	"github.com/alejandrodnm/arbishark/internal/domain/strategy"
)

// Config es la configuración completa del agente.
type Config struct {
	Permission PermissionConfig `yaml:"permission"`
	Trading    TradingConfig    `yaml:"trading"`
	Timing     TimingConfig     `yaml:"timing"`
	Risk       RiskConfig       `yaml:"risk"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Safety     SafetyConfig     `yaml:"safety"`
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Notify     NotifyConfig     `yaml:"notify"`
	Log        LogConfig        `yaml:"log"`
}

// PermissionConfig describe el permiso de gasto diario. Si rpc_url está vacío el
// límite es daily_limit_usdc; si no, se lee on-chain en cada reset.
type PermissionConfig struct {
	PermissionID   string  `yaml:"permission_id"`
	DailyLimitUSDC float64 `yaml:"daily_limit_usdc"`
	RPCURL         string  `yaml:"rpc_url"`
	USDCAddress    string  `yaml:"usdc_address"` // vacío = USDC.e en Polygon
	OwnerAddress   string  `yaml:"owner_address"`
	SpenderAddress string  `yaml:"spender_address"`
}

// OnChain indica si la allowance se lee de la cadena.
func (p PermissionConfig) OnChain() bool {
	return p.RPCURL != ""
}

// TradingConfig controla detección, tamaño y salidas.
type TradingConfig struct {
	MinSpreadThreshold float64 `yaml:"min_spread_threshold"`
	MinProfitThreshold float64 `yaml:"min_profit_threshold"`
	TradeSize          float64 `yaml:"trade_size"`         // shares por leg
	MaxPositionValue   float64 `yaml:"max_position_value"` // USDC por leg
	TakerFeeBps        float64 `yaml:"taker_fee_bps"`      // si el mercado no informa fee
	ProfitTargetSpread float64 `yaml:"profit_target_spread"`
	StopLossSpread     float64 `yaml:"stop_loss_spread"`
}

// TimingConfig agrupa intervalos y el modelo de latencia.
type TimingConfig struct {
	PollIntervalSecs    int     `yaml:"poll_interval_secs"`
	PositionTimeoutSecs int     `yaml:"position_timeout_secs"`
	FetchTimeoutSecs    int     `yaml:"fetch_timeout_secs"`
	LatencyBaseMs       int     `yaml:"latency_base_ms"`
	LatencyCostPerMs    float64 `yaml:"latency_cost_per_ms"`
	AdverseSelectionStd float64 `yaml:"adverse_selection_std"`
	Seed                uint64  `yaml:"seed"` // 0 = semilla del reloj
}

// RiskConfig son los umbrales del risk gate.
type RiskConfig struct {
	InitialBalance       float64 `yaml:"initial_balance"`
	MaxDrawdown          float64 `yaml:"max_drawdown"`
	MaxDailyLoss         float64 `yaml:"max_daily_loss"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	VolatilityThreshold  float64 `yaml:"volatility_threshold"`
	MinLiquidity         float64 `yaml:"min_liquidity"`
	MaxPositionSize      float64 `yaml:"max_position_size"`
}

// StrategyConfig alimenta el hook adaptive_edge y el blocklist.
type StrategyConfig struct {
	ConservativeThreshold float64  `yaml:"conservative_threshold"`
	AggressiveThreshold   float64  `yaml:"aggressive_threshold"`
	ConservativeMinEdge   float64  `yaml:"conservative_min_edge"`
	NormalMinEdge         float64  `yaml:"normal_min_edge"`
	AggressiveMinEdge     float64  `yaml:"aggressive_min_edge"`
	BlockedMarkets        []string `yaml:"blocked_markets"`
}

// Modes convierte la sección al tipo del dominio.
func (s StrategyConfig) Modes() strategy.Config {
	return strategy.Config{
		ConservativeThreshold: s.ConservativeThreshold,
		AggressiveThreshold:   s.AggressiveThreshold,
		ConservativeMinEdge:   s.ConservativeMinEdge,
		NormalMinEdge:         s.NormalMinEdge,
		AggressiveMinEdge:     s.AggressiveMinEdge,
	}
}

// SafetyConfig controla el safe mode y la frescura del feed.
type SafetyConfig struct {
	MaxDataDelayMs         int   `yaml:"max_data_delay_ms"`
	MaxConsecutiveFailures int   `yaml:"max_consecutive_failures"`
	SafeModeCooldownSecs   int   `yaml:"safe_mode_cooldown_secs"`
	AssumeZeroOnPermError  *bool `yaml:"assume_zero_on_perm_error"` // nil = true
}

// AssumeZero indica si un error leyendo el permiso deja el límite en 0.
func (s SafetyConfig) AssumeZero() bool {
	return s.AssumeZeroOnPermError == nil || *s.AssumeZeroOnPermError
}

// APIConfig elige el backend de datos y sus URLs.
type APIConfig struct {
	Backend     string  `yaml:"backend"` // gamma | indexer | mock
	CLOBBase    string  `yaml:"clob_base"`
	GammaBase   string  `yaml:"gamma_base"`
	IndexerURL  string  `yaml:"indexer_url"`
	MarketLimit int     `yaml:"market_limit"`
	MockDrift   float64 `yaml:"mock_drift"`
}

// StorageConfig controla dónde se persiste el journal.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// DashboardConfig controla el servidor HTTP.
type DashboardConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	WSIntervalSecs int    `yaml:"ws_interval_secs"`
}

// NotifyConfig controla las notificaciones externas y la salida de consola.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"` // vacío = desactivado
	Username   string `yaml:"username"`
	Table      bool   `yaml:"table"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	BufferSize int    `yaml:"buffer_size"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve la configuración por defecto, sin archivo.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// PollInterval devuelve el intervalo entre ciclos.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timing.PollIntervalSecs) * time.Second
}

// PositionTimeout devuelve la edad máxima de una posición.
func (c *Config) PositionTimeout() time.Duration {
	return time.Duration(c.Timing.PositionTimeoutSecs) * time.Second
}

// FetchTimeout devuelve el tope de cada llamada de red.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Timing.FetchTimeoutSecs) * time.Second
}

// LatencyDelay devuelve el retraso simulado de ejecución.
func (c *Config) LatencyDelay() time.Duration {
	return time.Duration(c.Timing.LatencyBaseMs) * time.Millisecond
}

// MaxDataDelay devuelve el retraso máximo tolerado del feed.
func (c *Config) MaxDataDelay() time.Duration {
	return time.Duration(c.Safety.MaxDataDelayMs) * time.Millisecond
}

// SafeModeCooldown devuelve cuánto dura el safe mode.
func (c *Config) SafeModeCooldown() time.Duration {
	return time.Duration(c.Safety.SafeModeCooldownSecs) * time.Second
}

// WSInterval devuelve cada cuánto se empujan stats por websocket.
func (c *Config) WSInterval() time.Duration {
	return time.Duration(c.Dashboard.WSIntervalSecs) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ARBISHARK_BACKEND"); v != "" {
		cfg.API.Backend = v
	}
	if v := os.Getenv("ARBISHARK_DAILY_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Permission.DailyLimitUSDC = f
		}
	}
	if v := os.Getenv("ARBISHARK_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("ARBISHARK_RPC_URL"); v != "" {
		cfg.Permission.RPCURL = v
	}
	if v := os.Getenv("ARBISHARK_DASHBOARD_ADDR"); v != "" {
		cfg.Dashboard.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	p := &cfg.Permission
	if p.PermissionID == "" {
		p.PermissionID = "local"
	}
	if p.DailyLimitUSDC <= 0 {
		p.DailyLimitUSDC = 10
	}

	t := &cfg.Trading
	if t.MinSpreadThreshold <= 0 {
		t.MinSpreadThreshold = 0.02
	}
	if t.MinProfitThreshold <= 0 {
		t.MinProfitThreshold = 0.10
	}
	if t.TradeSize <= 0 {
		t.TradeSize = 5
	}
	if t.MaxPositionValue <= 0 {
		t.MaxPositionValue = 50
	}
	if t.TakerFeeBps <= 0 {
		t.TakerFeeBps = 200
	}
	if t.ProfitTargetSpread <= 0 {
		t.ProfitTargetSpread = 0.005
	}
	if t.StopLossSpread <= 0 {
		t.StopLossSpread = 0.02
	}

	tm := &cfg.Timing
	if tm.PollIntervalSecs <= 0 {
		tm.PollIntervalSecs = 5
	}
	if tm.PositionTimeoutSecs <= 0 {
		tm.PositionTimeoutSecs = 3600
	}
	if tm.FetchTimeoutSecs <= 0 {
		tm.FetchTimeoutSecs = 10
	}
	if tm.LatencyBaseMs <= 0 {
		tm.LatencyBaseMs = 50
	}
	if tm.LatencyCostPerMs <= 0 {
		tm.LatencyCostPerMs = 0.00001
	}
	if tm.AdverseSelectionStd <= 0 {
		tm.AdverseSelectionStd = 0.001
	}

	r := &cfg.Risk
	if r.InitialBalance <= 0 {
		r.InitialBalance = 100
	}
	if r.MaxDrawdown <= 0 {
		r.MaxDrawdown = 0.20
	}
	if r.MaxDailyLoss <= 0 {
		r.MaxDailyLoss = 50
	}
	if r.MaxConsecutiveLosses <= 0 {
		r.MaxConsecutiveLosses = 5
	}
	if r.VolatilityThreshold <= 0 {
		r.VolatilityThreshold = 0.15
	}
	if r.MinLiquidity <= 0 {
		r.MinLiquidity = 1000
	}
	if r.MaxPositionSize <= 0 {
		r.MaxPositionSize = 100
	}

	s := &cfg.Strategy
	def := strategy.DefaultConfig()
	if s.ConservativeThreshold <= 0 {
		s.ConservativeThreshold = def.ConservativeThreshold
	}
	if s.AggressiveThreshold <= 0 {
		s.AggressiveThreshold = def.AggressiveThreshold
	}
	if s.ConservativeMinEdge <= 0 {
		s.ConservativeMinEdge = def.ConservativeMinEdge
	}
	if s.NormalMinEdge <= 0 {
		s.NormalMinEdge = def.NormalMinEdge
	}
	if s.AggressiveMinEdge <= 0 {
		s.AggressiveMinEdge = def.AggressiveMinEdge
	}

	sf := &cfg.Safety
	if sf.MaxDataDelayMs <= 0 {
		sf.MaxDataDelayMs = 5000
	}
	if sf.MaxConsecutiveFailures <= 0 {
		sf.MaxConsecutiveFailures = 3
	}
	if sf.SafeModeCooldownSecs <= 0 {
		sf.SafeModeCooldownSecs = 300
	}

	a := &cfg.API
	if a.Backend == "" {
		a.Backend = string(marketdata.Gamma)
	}
	if a.CLOBBase == "" {
		a.CLOBBase = "https://clob.polymarket.com"
	}
	if a.GammaBase == "" {
		a.GammaBase = "https://gamma-api.polymarket.com"
	}
	if a.MarketLimit <= 0 {
		a.MarketLimit = 20
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "arbishark.db"
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":3030"
	}
	if cfg.Dashboard.WSIntervalSecs <= 0 {
		cfg.Dashboard.WSIntervalSecs = 2
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.BufferSize <= 0 {
		cfg.Log.BufferSize = 500
	}
}

// Validate comprueba rangos y combinaciones. Los errores se devuelven todos juntos.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Trading.MinSpreadThreshold < 1, "trading.min_spread_threshold must be below 1, got %.4f",
		c.Trading.MinSpreadThreshold)
	check(c.Trading.StopLossSpread > 0 && c.Trading.ProfitTargetSpread > 0,
		"trading: profit_target_spread and stop_loss_spread must be positive")
	check(c.Risk.MaxDrawdown > 0 && c.Risk.MaxDrawdown <= 1,
		"risk.max_drawdown must be in (0,1], got %.2f", c.Risk.MaxDrawdown)
	check(c.Timing.AdverseSelectionStd >= 0, "timing.adverse_selection_std must not be negative")
	if err := c.Strategy.Modes().Validate(); err != nil {
		errs = append(errs, err)
	}
	backend, err := marketdata.ParseBackend(c.API.Backend)
	if err != nil {
		errs = append(errs, err)
	}
	check(backend != marketdata.Indexer || c.API.IndexerURL != "",
		"api.indexer_url is required for the indexer backend")
	if c.Permission.OnChain() {
		check(c.Permission.OwnerAddress != "" && c.Permission.SpenderAddress != "",
			"permission: owner_address and spender_address are required with rpc_url")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
