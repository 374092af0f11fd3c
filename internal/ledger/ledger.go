// Package ledger talks to the soulbound card contract on an EVM chain.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// SepoliaChainID is the chain the card contract is deployed on by default.
const SepoliaChainID = 11155111

// contractABI covers the four contract methods the minter uses.
const contractABI = `[
	{"type":"function","name":"safeMint","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable",
	 "inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"tokensOfOwner","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]}
]`

// ErrReverted is returned when a transaction is mined with a failed status.
var ErrReverted = errors.New("ledger: transaction reverted")

// Backend is the chain connection the client needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config configures a Client.
type Config struct {
	RPCURL     string // Dial only
	Contract   string // Hex contract address
	PrivateKey string // Hex private key of the wallet that owns the cards
	ChainID    int64  // Chain used to sign transactions
	Logger     zerolog.Logger
}

// Client reads and writes the card contract on behalf of one wallet.
type Client struct {
	backend  Backend
	contract *bind.BoundContract
	address  common.Address
	owner    common.Address
	auth     *bind.TransactOpts
	logger   zerolog.Logger
}

// Dial connects to cfg.RPCURL and returns a Client.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ledger: rpc url is required")
	}
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to dial %s: %w", cfg.RPCURL, err)
	}
	c, err := New(ec, cfg)
	if err != nil {
		ec.Close()
		return nil, err
	}
	return c, nil
}

// New returns a Client over an existing backend.
func New(backend Backend, cfg Config) (*Client, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", cfg.Contract)
	}

	key, err := parseKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = SepoliaChainID
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to create transactor: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to parse contract abi: %w", err)
	}

	address := common.HexToAddress(cfg.Contract)
	return &Client{
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:  address,
		owner:    crypto.PubkeyToAddress(key.PublicKey),
		auth:     auth,
		logger:   cfg.Logger.With().Str("component", "ledger").Logger(),
	}, nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("ledger: private key is required")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid private key: %w", err)
	}
	return key, nil
}

// Owner returns the wallet address transactions are sent from.
func (c *Client) Owner() common.Address {
	return c.owner
}

// ChainID returns the chain the backend is connected to.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to read chain id: %w", err)
	}
	return id, nil
}

// TokensOfOwner returns the token ids held by owner.
func (c *Client) TokensOfOwner(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx, From: c.owner}, &out, "tokensOfOwner", owner); err != nil {
		return nil, fmt.Errorf("ledger: tokensOfOwner failed: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ledger: tokensOfOwner returned no values")
	}
	ids := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	return ids, nil
}

// TokenURI returns the metadata URI of tokenID.
func (c *Client) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx, From: c.owner}, &out, "tokenURI", tokenID); err != nil {
		return "", fmt.Errorf("ledger: tokenURI(%s) failed: %w", tokenID, err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("ledger: tokenURI returned no values")
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Mint mints a token for to with uri and waits for it to be mined.
func (c *Client) Mint(ctx context.Context, to common.Address, uri string) (common.Hash, error) {
	return c.transact(ctx, "safeMint", to, uri)
}

// Burn burns tokenID and waits for it to be mined.
func (c *Client) Burn(ctx context.Context, tokenID *big.Int) (common.Hash, error) {
	return c.transact(ctx, "burn", tokenID)
}

func (c *Client) transact(ctx context.Context, method string, params ...interface{}) (common.Hash, error) {
	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger: %s failed: %w", method, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("tx", tx.Hash().Hex()).
		Msg("Transaction sent")

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("ledger: waiting for %s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("%w: %s in %s", ErrReverted, method, tx.Hash().Hex())
	}

	c.logger.Debug().
		Str("method", method).
		Uint64("block", receipt.BlockNumber.Uint64()).
		Uint64("gas", receipt.GasUsed).
		Msg("Transaction mined")
	return tx.Hash(), nil
}
