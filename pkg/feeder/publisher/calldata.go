package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Defaults for the receiver call envelope.
const (
	DefaultGasLimit   = 5_500_000
	DefaultExpiration = 64 * time.Second
)

// Receiver contract methods.
const (
	MethodCallback        = "callback"
	MethodFailureCallback = "failureCallback"
)

const receiverABIJSON = `[{
	"type": "function",
	"name": "callback",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "feedNames", "type": "bytes32[]"},
		{"name": "values", "type": "int256[]"},
		{"name": "expiration", "type": "uint256"}
	],
	"outputs": []
}, {
	"type": "function",
	"name": "failureCallback",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "feedNames", "type": "bytes32[]"}
	],
	"outputs": []
}]`

// ReceiverABI returns the parsed receiver contract ABI.
func ReceiverABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(receiverABIJSON))
}

// Call is one encoded contract invocation.
type Call struct {
	Method string `json:"method"`
	Data   string `json:"data"`
}

// PayloadFeed describes one feed carried by the callback.
type PayloadFeed struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload is the document emitted for one batch.
type Payload struct {
	Round       uint64        `json:"round"`
	Contract    string        `json:"contract"`
	Expiration  uint64        `json:"expiration"`
	GasLimit    uint64        `json:"gas_limit"`
	Registering bool          `json:"registering"`
	Calls       []Call        `json:"calls"`
	Feeds       []PayloadFeed `json:"feeds"`
	Missing     []string      `json:"missing,omitempty"`
}

// CalldataOptions configures a CalldataPublisher.
type CalldataOptions struct {
	Output     io.Writer
	Contract   common.Address
	GasLimit   uint64
	Expiration time.Duration
}

// CalldataPublisher ABI-encodes batches as receiver contract calls and
// writes one JSON payload per batch.
type CalldataPublisher struct {
	abi  abi.ABI
	opts CalldataOptions

	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

var _ Publisher = (*CalldataPublisher)(nil)

// NewCalldataPublisher creates a calldata publisher. A nil output writes to stdout.
func NewCalldataPublisher(opts CalldataOptions) (*CalldataPublisher, error) {
	parsed, err := ReceiverABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse receiver ABI: %w", err)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = DefaultGasLimit
	}
	if opts.Expiration <= 0 {
		opts.Expiration = DefaultExpiration
	}
	return &CalldataPublisher{
		abi:  parsed,
		opts: opts,
		enc:  json.NewEncoder(opts.Output),
		now:  time.Now,
	}, nil
}

// Name implements Publisher.
func (p *CalldataPublisher) Name() string {
	return "calldata"
}

// Encode builds the payload for batch. The failure callback is only added
// outside registration and when feeds are missing.
func (p *CalldataPublisher) Encode(batch Batch) (*Payload, error) {
	created := batch.CreatedAt
	if created.IsZero() {
		created = p.now()
	}
	expiration := uint64(created.Add(p.opts.Expiration).Unix())

	names := make([][32]byte, len(batch.Updates))
	values := make([]*big.Int, len(batch.Updates))
	feeds := make([]PayloadFeed, len(batch.Updates))
	for i, u := range batch.Updates {
		names[i] = u.ID
		values[i] = u.Encoded
		feeds[i] = PayloadFeed{ID: u.ID.Hex(), Name: u.ID.Name(), Value: u.Encoded.String()}
	}

	data, err := p.abi.Pack(MethodCallback, names, values, new(big.Int).SetUint64(expiration))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, MethodCallback, err)
	}

	payload := &Payload{
		Round:       batch.Round,
		Contract:    p.opts.Contract.Hex(),
		Expiration:  expiration,
		GasLimit:    p.opts.GasLimit,
		Registering: batch.Registering,
		Calls:       []Call{{Method: MethodCallback, Data: hexutil.Encode(data)}},
		Feeds:       feeds,
	}

	if !batch.Registering && len(batch.Missing) > 0 {
		missing := make([][32]byte, len(batch.Missing))
		payload.Missing = make([]string, len(batch.Missing))
		for i, id := range batch.Missing {
			missing[i] = id
			payload.Missing[i] = id.Name()
		}
		data, err := p.abi.Pack(MethodFailureCallback, missing)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEncode, MethodFailureCallback, err)
		}
		payload.Calls = append(payload.Calls, Call{Method: MethodFailureCallback, Data: hexutil.Encode(data)})
	}
	return payload, nil
}

// Publish implements Publisher.
func (p *CalldataPublisher) Publish(_ context.Context, batch Batch) error {
	payload, err := p.Encode(batch)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// Close closes the output when it is a file.
func (p *CalldataPublisher) Close() error {
	if p.opts.Output == os.Stdout || p.opts.Output == os.Stderr {
		return nil
	}
	if c, ok := p.opts.Output.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenOutput resolves a configured output: "stdout", "stderr" or a file
// path opened for appending.
func OpenOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open calldata output: %w", err)
		}
		return f, nil
	}
}
