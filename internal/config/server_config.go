package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// ModuleName is the canonical name of this service.
const ModuleName = "swap-executor"

// EVMChain holds the per-chain settings for one supported EVM network.
// Exactly one RPC endpoint is configured per chain id.
type EVMChain struct {
	ChainID    int64  `json:"chainId"`
	RPCURL     string `json:"rpcUrl"`
	FundingWei string `json:"fundingWei"`
}

// Solana holds the settings for the Solana network.
type Solana struct {
	ChainID         int64         `json:"chainId"`
	RPCURL          string        `json:"rpcUrl"`
	FunderSecretKey string        `json:"-"` // base58-encoded 64-byte keypair, optional
	BlockhashTTL    time.Duration `json:"blockhashTtl"`
}

// Retry tunes the funding-retry controller.
type Retry struct {
	MaxFundingAttempts int           `json:"maxFundingAttempts"`
	SettleDelay        time.Duration `json:"settleDelay"`
	ConfirmTimeout     time.Duration `json:"confirmTimeout"`
}

// Echo holds the HTTP listener settings.
type Echo struct {
	ListenAddress string `json:"listenAddress"`
}

// Server is the full, env-derived service configuration.
// Secrets are excluded from JSON so the env subcommand can print it safely.
type Server struct {
	ServerSecret        string     `json:"-"`
	Echo                Echo       `json:"echo"`
	Solana              Solana     `json:"solana"`
	EVMChains           []EVMChain `json:"evmChains"`
	EVMFunderPrivateKey string     `json:"-"` // hex-encoded secp256k1 key, optional
	Retry               Retry      `json:"retry"`
}

// EVMChainByID returns the configured chain with the given id, if any.
func (s *Server) EVMChainByID(chainID int64) (EVMChain, bool) {
	for _, c := range s.EVMChains {
		if c.ChainID == chainID {
			return c, true
		}
	}
	return EVMChain{}, false
}

// DefaultServiceConfigFromEnv returns the configuration as resolved from
// the environment. A missing funder key is not an error here; funding is
// then skipped at the first funding attempt and the step fails fast.
func DefaultServiceConfigFromEnv() Server {
	// Optional local overrides, same mechanism the deploy tooling uses.
	_ = gotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix("SWAP_EXECUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_address", ":8077")
	v.SetDefault("server_secret", "")
	v.SetDefault("solana_chain_id", 1151111081099710)
	v.SetDefault("solana_rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana_funder_secret_key", "")
	v.SetDefault("solana_blockhash_ttl_seconds", 60)
	// chainId=rpcUrl pairs, semicolon separated.
	v.SetDefault("evm_rpc_urls", "8453=https://mainnet.base.org;56=https://bsc-dataseed.bnbchain.org")
	// chainId=wei pairs; the per-chain top-up requested from the funder.
	v.SetDefault("evm_funding_wei", "8453=500000000000000;56=1000000000000000")
	v.SetDefault("evm_funder_private_key", "")
	v.SetDefault("max_funding_attempts", 10)
	v.SetDefault("settle_delay_seconds", 3)
	v.SetDefault("confirm_timeout_seconds", 90)

	rpcByChain := parseChainValues(v.GetString("evm_rpc_urls"))
	fundingByChain := parseChainValues(v.GetString("evm_funding_wei"))

	chains := make([]EVMChain, 0, len(rpcByChain))
	for _, entry := range rpcByChain {
		chains = append(chains, EVMChain{
			ChainID:    entry.chainID,
			RPCURL:     entry.value,
			FundingWei: lookupChainValue(fundingByChain, entry.chainID),
		})
	}

	return Server{
		ServerSecret: v.GetString("server_secret"),
		Echo: Echo{
			ListenAddress: v.GetString("listen_address"),
		},
		Solana: Solana{
			ChainID:         v.GetInt64("solana_chain_id"),
			RPCURL:          v.GetString("solana_rpc_url"),
			FunderSecretKey: v.GetString("solana_funder_secret_key"),
			BlockhashTTL:    time.Duration(v.GetInt("solana_blockhash_ttl_seconds")) * time.Second,
		},
		EVMChains:           chains,
		EVMFunderPrivateKey: v.GetString("evm_funder_private_key"),
		Retry: Retry{
			MaxFundingAttempts: v.GetInt("max_funding_attempts"),
			SettleDelay:        time.Duration(v.GetInt("settle_delay_seconds")) * time.Second,
			ConfirmTimeout:     time.Duration(v.GetInt("confirm_timeout_seconds")) * time.Second,
		},
	}
}

type chainValue struct {
	chainID int64
	value   string
}

// parseChainValues parses "chainId=value" pairs separated by ';'.
// Malformed entries are logged and skipped rather than failing startup.
func parseChainValues(raw string) []chainValue {
	out := make([]chainValue, 0, 2)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chainStr, value, found := strings.Cut(part, "=")
		if !found {
			log.Warn().Str("entry", part).Msg("Ignoring malformed chain config entry")
			continue
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(chainStr), 10, 64)
		if err != nil {
			log.Warn().Str("entry", part).Msg("Ignoring chain config entry with non-numeric chain id")
			continue
		}
		out = append(out, chainValue{chainID: chainID, value: strings.TrimSpace(value)})
	}
	return out
}

func lookupChainValue(values []chainValue, chainID int64) string {
	for _, v := range values {
		if v.chainID == chainID {
			return v.value
		}
	}
	return ""
}
