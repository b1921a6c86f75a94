package parser

import (
	"flashcat.cloud/statsgraf/types"
)

type Parser interface {
	Parse(input []byte, mlist *types.MetricList) error
}
