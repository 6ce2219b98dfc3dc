// Package config 管理 marketcli 的连接 profile
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	logconfig "github.com/weisyn/marketclient/internal/config/log"
)

// 默认值
const (
	DefaultGasMultiplier  = 4
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 3 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
	DefaultCodeCacheTTL   = 30 * time.Minute
	DefaultRatesKey       = "marketclient:rates"
	DefaultHTTPListen     = "127.0.0.1:8645"
)

// Profile 一套连接与行为配置
type Profile struct {
	Name string `json:"name"` // local/testnet/mainnet

	// 节点端点（按优先级排序，连接时依次尝试）
	Endpoints []EndpointConfig `json:"endpoints"`
	Timeout   Duration         `json:"timeout"` // 单次请求超时

	// 账户与合约
	From          string `json:"from"` // 节点托管的发送账户
	AliasRegistry string `json:"alias_registry"`
	StoreRegistry string `json:"store_registry"`
	Batcher       string `json:"batcher,omitempty"`

	// 交易
	GasMultiplier  uint64   `json:"gas_multiplier"`
	ConfirmTimeout Duration `json:"confirm_timeout"`
	PollInterval   Duration `json:"poll_interval"`
	RefreshTimeout Duration `json:"refresh_timeout"`
	CodeCacheTTL   Duration `json:"code_cache_ttl"`

	// 币种与汇率
	DisplayCurrency string            `json:"display_currency"`
	StaticRates     map[string]string `json:"static_rates,omitempty"`
	RedisAddr       string            `json:"redis_addr,omitempty"`
	RatesKey        string            `json:"rates_key,omitempty"`

	// 合约种类 -> 字节码指纹（或完整运行时字节码）
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
	// 店铺合约的部署字节码，仅用于成本估算
	StoreBytecode string `json:"store_bytecode,omitempty"`

	HTTPListen string                `json:"http_listen"`
	Log        *logconfig.LogOptions `json:"log,omitempty"`
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`     // 端点名称
	Priority int    `json:"priority"` // 优先级(数字越小越优先)
	URL      string `json:"url"`      // JSON-RPC 地址（http/https/ws/wss/ipc）
}

// Duration 时间duration(支持JSON序列化)
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}

// Std 转换为 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ApplyDefaults 填充零值字段
func (p *Profile) ApplyDefaults() {
	if p.Timeout == 0 {
		p.Timeout = Duration(30 * time.Second)
	}
	if p.GasMultiplier == 0 {
		p.GasMultiplier = DefaultGasMultiplier
	}
	if p.ConfirmTimeout == 0 {
		p.ConfirmTimeout = Duration(DefaultConfirmTimeout)
	}
	if p.PollInterval == 0 {
		p.PollInterval = Duration(DefaultPollInterval)
	}
	if p.RefreshTimeout == 0 {
		p.RefreshTimeout = Duration(DefaultRefreshTimeout)
	}
	if p.CodeCacheTTL == 0 {
		p.CodeCacheTTL = Duration(DefaultCodeCacheTTL)
	}
	if p.DisplayCurrency == "" {
		p.DisplayCurrency = "ETH"
	}
	if p.RedisAddr != "" && p.RatesKey == "" {
		p.RatesKey = DefaultRatesKey
	}
	if p.HTTPListen == "" {
		p.HTTPListen = DefaultHTTPListen
	}
}

// Validate 检查 profile 是否可用
func (p *Profile) Validate() error {
	var errs []error
	if len(p.Endpoints) == 0 {
		errs = append(errs, errors.New("no endpoints configured"))
	}
	for _, ep := range p.Endpoints {
		if strings.TrimSpace(ep.URL) == "" {
			errs = append(errs, fmt.Errorf("endpoint %q has no url", ep.Name))
		}
	}

	addrs := map[string]string{
		"from":           p.From,
		"alias_registry": p.AliasRegistry,
		"store_registry": p.StoreRegistry,
	}
	if p.Batcher != "" {
		addrs["batcher"] = p.Batcher
	}
	names := make([]string, 0, len(addrs))
	for name := range addrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !common.IsHexAddress(addrs[name]) {
			errs = append(errs, fmt.Errorf("%s: %q is not a hex address", name, addrs[name]))
		}
	}

	if p.GasMultiplier < 1 {
		errs = append(errs, errors.New("gas_multiplier must be at least 1"))
	}
	if p.PollInterval >= p.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("poll_interval %s must be shorter than confirm_timeout %s",
			p.PollInterval.Std(), p.ConfirmTimeout.Std()))
	}
	return errors.Join(errs...)
}

// SortedEndpoints 按优先级排序的端点
func (p *Profile) SortedEndpoints() []EndpointConfig {
	out := append([]EndpointConfig(nil), p.Endpoints...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// ProfileManager Profile管理器
type ProfileManager struct {
	configDir      string
	currentProfile string
	profiles       map[string]*Profile
}

// NewProfileManager 创建Profile管理器
func NewProfileManager(configDir string) (*ProfileManager, error) {
	if configDir == "" {
		// 默认配置目录: ~/.marketclient
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		configDir = filepath.Join(homeDir, ".marketclient")
	}

	// 确保配置目录存在
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	pm := &ProfileManager{
		configDir: configDir,
		profiles:  make(map[string]*Profile),
	}

	if err := pm.loadProfiles(); err != nil {
		return nil, err
	}

	if err := pm.loadCurrentProfile(); err != nil {
		// 如果没有当前profile,使用默认
		pm.currentProfile = "local"
	}

	return pm, nil
}

// ConfigDir 配置目录
func (pm *ProfileManager) ConfigDir() string { return pm.configDir }

// loadProfiles 加载所有profiles
func (pm *ProfileManager) loadProfiles() error {
	profilesDir := filepath.Join(pm.configDir, "profiles")

	// 如果profiles目录不存在,创建默认profiles
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		if err := os.MkdirAll(profilesDir, 0700); err != nil {
			return fmt.Errorf("create profiles dir: %w", err)
		}
		if err := pm.createDefaultProfiles(); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return fmt.Errorf("read profiles dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isJSONFile(entry.Name()) {
			continue
		}

		profilePath := filepath.Join(profilesDir, entry.Name())
		profile, err := pm.loadProfile(profilePath)
		if err != nil {
			// 记录错误但继续
			fmt.Fprintf(os.Stderr, "Warning: failed to load profile %s: %v\n", entry.Name(), err)
			continue
		}

		pm.profiles[profile.Name] = profile
	}

	return nil
}

// loadProfile 加载单个profile
func (pm *ProfileManager) loadProfile(filePath string) (*Profile, error) {
	//nolint:gosec // G304: filePath 来自配置目录，路径安全可控
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), ".json")
	}
	profile.ApplyDefaults()
	return &profile, nil
}

// loadCurrentProfile 加载当前profile
func (pm *ProfileManager) loadCurrentProfile() error {
	currentFile := filepath.Join(pm.configDir, "current")
	//nolint:gosec // G304: currentFile 来自配置目录，路径安全可控
	data, err := os.ReadFile(currentFile)
	if err != nil {
		return err
	}

	pm.currentProfile = strings.TrimSpace(string(data))
	return nil
}

// saveCurrentProfile 保存当前profile
func (pm *ProfileManager) saveCurrentProfile() error {
	currentFile := filepath.Join(pm.configDir, "current")
	return os.WriteFile(currentFile, []byte(pm.currentProfile), 0600)
}

// createDefaultProfiles 创建默认profiles
//
// 合约地址需要用户按实际部署填写。
func (pm *ProfileManager) createDefaultProfiles() error {
	zero := common.Address{}.Hex()
	profiles := []*Profile{
		{
			Name: "local",
			Endpoints: []EndpointConfig{
				{Name: "local-node", Priority: 1, URL: "http://localhost:8545"},
			},
			From:          zero,
			AliasRegistry: zero,
			StoreRegistry: zero,
			PollInterval:  Duration(time.Second),
		},
		{
			Name: "testnet",
			Endpoints: []EndpointConfig{
				{Name: "testnet-primary", Priority: 1, URL: "https://testnet-rpc.example.org"},
				{Name: "testnet-backup", Priority: 2, URL: "https://testnet-rpc2.example.org"},
			},
			From:          zero,
			AliasRegistry: zero,
			StoreRegistry: zero,
			Timeout:       Duration(60 * time.Second),
		},
		{
			Name: "mainnet",
			Endpoints: []EndpointConfig{
				{Name: "mainnet-primary", Priority: 1, URL: "https://mainnet-rpc.example.org"},
				{Name: "mainnet-backup", Priority: 2, URL: "https://mainnet-rpc2.example.org"},
			},
			From:           zero,
			AliasRegistry:  zero,
			StoreRegistry:  zero,
			Timeout:        Duration(60 * time.Second),
			ConfirmTimeout: Duration(5 * time.Minute),
			PollInterval:   Duration(12 * time.Second),
		},
	}

	for _, profile := range profiles {
		if err := pm.SaveProfile(profile); err != nil {
			return err
		}
	}

	// 设置local为当前profile
	pm.currentProfile = "local"
	return pm.saveCurrentProfile()
}

// GetProfile 获取指定profile
func (pm *ProfileManager) GetProfile(name string) (*Profile, error) {
	profile, exists := pm.profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile not found: %s", name)
	}
	return profile, nil
}

// GetCurrentProfile 获取当前profile
func (pm *ProfileManager) GetCurrentProfile() (*Profile, error) {
	return pm.GetProfile(pm.currentProfile)
}

// CurrentName 当前profile名称
func (pm *ProfileManager) CurrentName() string { return pm.currentProfile }

// ListProfiles 列出所有profiles（按名称排序）
func (pm *ProfileManager) ListProfiles() []string {
	names := make([]string, 0, len(pm.profiles))
	for name := range pm.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveProfile 保存profile
func (pm *ProfileManager) SaveProfile(profile *Profile) error {
	profile.ApplyDefaults()
	profilePath := filepath.Join(pm.configDir, "profiles", profile.Name+".json")

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	if err := os.WriteFile(profilePath, data, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	pm.profiles[profile.Name] = profile
	return nil
}

// SwitchProfile 切换profile
func (pm *ProfileManager) SwitchProfile(name string) error {
	if _, exists := pm.profiles[name]; !exists {
		return fmt.Errorf("profile not found: %s", name)
	}

	pm.currentProfile = name
	return pm.saveCurrentProfile()
}

// DeleteProfile 删除profile
func (pm *ProfileManager) DeleteProfile(name string) error {
	// 不能删除当前profile
	if name == pm.currentProfile {
		return fmt.Errorf("cannot delete current profile")
	}

	profilePath := filepath.Join(pm.configDir, "profiles", name+".json")
	if err := os.Remove(profilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete profile file: %w", err)
	}

	delete(pm.profiles, name)
	return nil
}

// isJSONFile 检查是否是JSON文件
func isJSONFile(name string) bool {
	return filepath.Ext(name) == ".json"
}
