package publisher

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-push/pkg/config"
	"github.com/StrathCole/oracle-push/pkg/feeder/store"
	"github.com/StrathCole/oracle-push/pkg/logging"
)

// Build creates the publishers named in cfg. In dry-run mode only the log
// publisher is used, whatever the configured types.
func Build(cfg config.PublisherConfig, writer store.Writer, logger *logging.Logger) (*Multi, error) {
	types := cfg.Types
	if cfg.DryRun {
		types = []string{"log"}
	}

	publishers := make([]Publisher, 0, len(types))
	for _, t := range types {
		switch t {
		case "log":
			publishers = append(publishers, NewLogPublisher(logger))
		case "calldata":
			out, err := OpenOutput(cfg.Calldata.Output)
			if err != nil {
				return nil, err
			}
			p, err := NewCalldataPublisher(CalldataOptions{
				Output:     out,
				Contract:   common.HexToAddress(cfg.Calldata.Contract),
				GasLimit:   cfg.Calldata.GasLimit,
				Expiration: cfg.Expiration.ToDuration(),
			})
			if err != nil {
				return nil, err
			}
			publishers = append(publishers, p)
		case "store":
			if writer == nil {
				return nil, fmt.Errorf("%w: store publisher requires a state store", ErrUnknownType)
			}
			publishers = append(publishers, NewStorePublisher(writer))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
		}
	}
	return NewMulti(publishers...), nil
}
