package port_reader

import (
	"bufio"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

const telegramBody = "/FLU5\\253769484_A\r\n" +
	"\r\n" +
	"0-0:96.1.4(50217)\r\n" +
	"0-0:96.1.1(3153414733313031303231363035)\r\n" +
	"0-0:1.0.0(240601143005S)\r\n" +
	"1-0:1.8.1(000123.456*kWh)\r\n" +
	"1-0:1.8.2(000200.000*kWh)\r\n" +
	"1-0:2.8.1(000010.500*kWh)\r\n" +
	"1-0:2.8.2(000001.000*kWh)\r\n" +
	"0-0:96.14.0(0002)\r\n" +
	"1-0:1.7.0(00.000*kW)\r\n" +
	"1-0:2.7.0(00.300*kW)\r\n" +
	"1-0:21.7.0(00.000*kW)\r\n" +
	"1-0:22.7.0(00.300*kW)\r\n" +
	"1-0:32.7.0(230.0*V)\r\n" +
	"1-0:52.7.0(232.0*V)\r\n" +
	"1-0:72.7.0(231.0*V)\r\n" +
	"!"

func withCRC(body string) string {
	crc := crc16.Checksum([]byte(body), crc16.MakeTable(crc16.CRC16_ARC))
	return fmt.Sprintf("%s%04X\r\n", body, crc)
}

func newTestReader() *P1Reader {
	return NewP1Reader("/dev/null", 115200, time.UTC)
}

func TestParseTelegram(t *testing.T) {
	reading := newTestReader().parseTelegram(withCRC(telegramBody))
	require.NotNil(t, reading)

	assert.Equal(t, time.Date(2024, 6, 1, 14, 30, 5, 0, time.UTC), reading.Timestamp)
	assert.Equal(t, -300.0, reading.GridPowerW)
	assert.Equal(t, -300.0, reading.L1PowerW)
	assert.Equal(t, types.Numeric(323456), reading.GridEnergyTotalWh)
	assert.Equal(t, types.Numeric(11500), reading.GridEnergyReturnedWh)
	assert.False(t, reading.PVEnergyTotalWh.Present)
	assert.Equal(t, 231.0, reading.VoltageV)
	assert.Equal(t, 2, reading.CurrentTariff)
	assert.Equal(t, "1SAG3101021605", reading.MeterSerial)
}

func TestParseTelegram_BadCRC(t *testing.T) {
	assert.Nil(t, newTestReader().parseTelegram(telegramBody+"0000\r\n"))
	assert.Nil(t, newTestReader().parseTelegram(telegramBody))
}

func TestParseTelegram_MissingTariffRegisterLeavesCounterEmpty(t *testing.T) {
	body := strings.Replace(telegramBody, "1-0:1.8.2(000200.000*kWh)\r\n", "", 1)
	reading := newTestReader().parseTelegram(withCRC(body))
	require.NotNil(t, reading)

	assert.False(t, reading.GridEnergyTotalWh.Present)
	assert.True(t, reading.GridEnergyReturnedWh.Present)
}

func TestReadTelegram_SkipsLeadingGarbage(t *testing.T) {
	stream := "garbage from a half telegram\r\n!1234\r\n" + withCRC(telegramBody) + withCRC(telegramBody)
	p := newTestReader()
	p.lineReader = bufio.NewReader(strings.NewReader(stream))

	for i := 0; i < 2; i++ {
		telegram, err := p.readTelegram()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(telegram, "/FLU5"))
		assert.True(t, p.validateCRC(telegram))
	}

	_, err := p.readTelegram()
	assert.Error(t, err)
}

func TestReadTelegram_NotConnected(t *testing.T) {
	_, err := newTestReader().readTelegram()
	assert.Error(t, err)
}
