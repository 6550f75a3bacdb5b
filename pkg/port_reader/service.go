package port_reader

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/sigurn/crc16"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/esmutils"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Initialize a new P1Reader client.
// Telegram timestamps are interpreted in loc.
func NewP1Reader(port string, baudrate uint, loc *time.Location) *P1Reader {
	if loc == nil {
		loc = time.Local
	}
	reader := &P1Reader{
		port:     port,
		baudrate: baudrate,
		location: loc,
	}

	// Pre-compile regex patterns
	reader.obisPatterns = map[string]*regexp.Regexp{
		"current_consumption":     regexp.MustCompile(`1-0:1\.7\.0\((\d+\.\d+)\*kW\)`),
		"current_production":      regexp.MustCompile(`1-0:2\.7\.0\((\d+\.\d+)\*kW\)`),
		"l1_consumption":          regexp.MustCompile(`1-0:21\.7\.0\((\d+\.\d+)\*kW\)`),
		"l2_consumption":          regexp.MustCompile(`1-0:41\.7\.0\((\d+\.\d+)\*kW\)`),
		"l3_consumption":          regexp.MustCompile(`1-0:61\.7\.0\((\d+\.\d+)\*kW\)`),
		"l1_production":           regexp.MustCompile(`1-0:22\.7\.0\((\d+\.\d+)\*kW\)`),
		"l2_production":           regexp.MustCompile(`1-0:42\.7\.0\((\d+\.\d+)\*kW\)`),
		"l3_production":           regexp.MustCompile(`1-0:62\.7\.0\((\d+\.\d+)\*kW\)`),
		"total_consumption_day":   regexp.MustCompile(`1-0:1\.8\.1\((\d+\.\d+)\*kWh\)`),
		"total_consumption_night": regexp.MustCompile(`1-0:1\.8\.2\((\d+\.\d+)\*kWh\)`),
		"total_production_day":    regexp.MustCompile(`1-0:2\.8\.1\((\d+\.\d+)\*kWh\)`),
		"total_production_night":  regexp.MustCompile(`1-0:2\.8\.2\((\d+\.\d+)\*kWh\)`),
		"l1_voltage":              regexp.MustCompile(`1-0:32\.7\.0\((\d+\.\d+)\*V\)`),
		"l2_voltage":              regexp.MustCompile(`1-0:52\.7\.0\((\d+\.\d+)\*V\)`),
		"l3_voltage":              regexp.MustCompile(`1-0:72\.7\.0\((\d+\.\d+)\*V\)`),
	}

	reader.specialPatterns = map[string]*regexp.Regexp{
		"timestamp":                regexp.MustCompile(`0-0:1\.0\.0\((\d{12}[WS])\)`),
		"current_tariff":           regexp.MustCompile(`0-0:96\.14\.0\((\d{4})\)`),
		"meter_serial_electricity": regexp.MustCompile(`0-0:96\.1\.1\(([A-F0-9]+)\)`),
	}

	return reader
}

// Start listening for readings. Messages are sent every second.
// Runs in goroutine until ctx is done. handleReading() also runs in goroutine.
func (p *P1Reader) StartReading(
	ctx context.Context,
	handleReading func(reading *types.MeterReading),
	handleError func(error),
) {
	go func() {
		// Tolerance before we report error.
		consecutiveErrors := 0
		maxErrors := 10
		var lastError error

		// Initialize the connection
		if err := p.connect(); err != nil {
			handleError(err)
			return
		}
		defer p.disconnect()

		// Unblock a pending read on shutdown
		port := p.serialPort
		go func() {
			<-ctx.Done()
			port.Close()
		}()

		for consecutiveErrors < maxErrors {
			if ctx.Err() != nil {
				log.Println("Stop signal received, disconnecting")
				return
			}

			// Read the telegram
			telegram, err := p.readTelegram()
			if err != nil {
				consecutiveErrors++
				lastError = err
				log.Printf("Error reading telegram (%d/%d): %v", consecutiveErrors, maxErrors, err)
				time.Sleep(time.Second)
				continue
			}

			if reading := p.parseTelegram(telegram); reading != nil {
				p.readingMutex.Lock()
				p.latestReading = reading
				p.readingMutex.Unlock()

				go handleReading(reading)
				consecutiveErrors = 0
			}
		}

		log.Printf("Too many consecutive errors (%d), stopping reader: %v", maxErrors, lastError)
		handleError(lastError)
	}()
}

func (p *P1Reader) GetLatestReading() *types.MeterReading {
	p.readingMutex.RLock()
	defer p.readingMutex.RUnlock()
	return p.latestReading
}

// Open the connection to the P1 port.
func (p *P1Reader) connect() error {
	options := serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	p.serialPort = port
	p.lineReader = bufio.NewReader(port)
	log.Printf("Connected to P1 port on %s", p.port)
	return nil
}

func (p *P1Reader) disconnect() {
	if p.serialPort != nil {
		p.serialPort.Close()
		p.serialPort = nil
		log.Println("Disconnected from P1 port")
	}
}

func (p *P1Reader) readTelegram() (string, error) {
	if p.lineReader == nil {
		return "", fmt.Errorf("serial port not connected")
	}

	var buffer strings.Builder
	var inTelegram bool

	for {
		line, err := p.lineReader.ReadString('\n')
		if err != nil {
			return "", err
		}

		if strings.HasPrefix(line, "/") {
			// Start of telegram
			buffer.Reset()
			buffer.WriteString(line)
			inTelegram = true
		} else if inTelegram {
			buffer.WriteString(line)
			if strings.HasPrefix(strings.TrimSpace(line), "!") {
				// End of telegram
				return buffer.String(), nil
			}
		}
	}
}

func (p *P1Reader) validateCRC(telegram string) bool {
	parts := strings.Split(telegram, "!")
	if len(parts) != 2 || len(parts[1]) < 4 {
		return false
	}

	data := parts[0] + "!"
	givenCRC := parts[1][:4]

	// CRC16_ARC matches the DSMR 5 specification
	calcCRC := crc16.Checksum([]byte(data), crcTable)
	calcCRCHex := fmt.Sprintf("%04X", calcCRC)

	return strings.ToUpper(givenCRC) == calcCRCHex
}

// parseTelegram maps the OBIS registers onto a reading. PV fields are left
// empty; the interpreter fills them from the inverter.
func (p *P1Reader) parseTelegram(telegram string) *types.MeterReading {
	if !p.validateCRC(telegram) {
		log.Println("Invalid CRC, skipping telegram")
		return nil
	}

	reading := &types.MeterReading{
		Timestamp: time.Now().In(p.location),
	}

	// Parse timestamp
	if match := p.specialPatterns["timestamp"].FindStringSubmatch(telegram); match != nil {
		if t, err := time.ParseInLocation("060102150405", match[1][:12], p.location); err == nil {
			reading.Timestamp = t
		}
	}

	// Parse regular OBIS codes
	values := make(map[string]float64, len(p.obisPatterns))
	for field, pattern := range p.obisPatterns {
		if match := pattern.FindStringSubmatch(telegram); match != nil {
			if value, err := strconv.ParseFloat(match[1], 64); err == nil {
				values[field] = value
			}
		}
	}

	reading.GridPowerW = esmutils.NetGridW(values["current_consumption"], values["current_production"])
	reading.L1PowerW = esmutils.NetGridW(values["l1_consumption"], values["l1_production"])
	reading.L2PowerW = esmutils.NetGridW(values["l2_consumption"], values["l2_production"])
	reading.L3PowerW = esmutils.NetGridW(values["l3_consumption"], values["l3_production"])
	reading.L1VoltageV = values["l1_voltage"]
	reading.L2VoltageV = values["l2_voltage"]
	reading.L3VoltageV = values["l3_voltage"]
	reading.VoltageV = averageVoltage(reading.L1VoltageV, reading.L2VoltageV, reading.L3VoltageV)

	// Counters only count when both tariff registers are present
	_, hasConsDay := values["total_consumption_day"]
	_, hasConsNight := values["total_consumption_night"]
	if hasConsDay && hasConsNight {
		reading.GridEnergyTotalWh = types.Numeric(
			esmutils.KwhToWh(values["total_consumption_day"]) + esmutils.KwhToWh(values["total_consumption_night"]))
	}
	_, hasProdDay := values["total_production_day"]
	_, hasProdNight := values["total_production_night"]
	if hasProdDay && hasProdNight {
		reading.GridEnergyReturnedWh = types.Numeric(
			esmutils.KwhToWh(values["total_production_day"]) + esmutils.KwhToWh(values["total_production_night"]))
	}

	// Parse special cases
	if match := p.specialPatterns["current_tariff"].FindStringSubmatch(telegram); match != nil {
		if value, err := strconv.Atoi(match[1]); err == nil {
			// Convert 0001 to 1, 0002 to 2
			reading.CurrentTariff = value % 10
		}
	}

	// Parse hex serial numbers
	if match := p.specialPatterns["meter_serial_electricity"].FindStringSubmatch(telegram); match != nil {
		if decoded, err := hex.DecodeString(match[1]); err == nil {
			reading.MeterSerial = string(decoded)
		} else {
			reading.MeterSerial = match[1]
		}
	}

	return reading
}

// averageVoltage ignores phases the meter does not report.
func averageVoltage(phases ...float64) float64 {
	var sum float64
	var n int
	for _, v := range phases {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
