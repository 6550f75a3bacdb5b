package port_reader

import (
	"bufio"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

type P1Reader struct {
	port          string
	baudrate      uint
	location      *time.Location
	serialPort    io.ReadWriteCloser
	lineReader    *bufio.Reader
	latestReading *types.MeterReading
	readingMutex  sync.RWMutex

	// Pre-compiled regex patterns
	obisPatterns    map[string]*regexp.Regexp
	specialPatterns map[string]*regexp.Regexp
}
