//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcs     [MAX_CHANNELS]machine.ADC
	channels = DEFAULT_CHANNELS
	uart     = machine.Serial

	// Timing
	lastRead time.Time
	epoch    time.Time

	// Serial buffer for reading command lines
	serialBuffer [8]byte
	serialPos    int

	// Output line buffer, reused for every row
	line [64]byte
)

func main() {
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range adcPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	epoch = time.Now()
	lastRead = epoch

	for {
		processSerial()

		now := time.Now()
		if now.Sub(lastRead) >= SAMPLE_INTERVAL_US*time.Microsecond {
			lastRead = now
			writeRow(uint32(now.Sub(epoch) / time.Microsecond))
		}
	}
}

// writeRow samples every active channel and prints one "micros,c0,...\n" line.
// The microsecond clock is 32 bits and wraps after ~71 minutes; the host
// treats the wrap as a new sweep.
func writeRow(micros uint32) {
	n := appendUint(line[:0], micros)
	for ch := 0; ch < channels; ch++ {
		// machine.ADC.Get is 16-bit left aligned
		count := adcs[ch].Get() >> (16 - ADC_RESOLUTION)
		n = append(n, ',')
		n = appendUint(n, uint32(count))
	}
	n = append(n, '\n')
	uart.Write(n)
}

func appendUint(b []byte, v uint32) []byte {
	var tmp [10]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(b, tmp[i:]...)
}

// processSerial handles host commands:
//
//	C<n>  stream n channels (1-4)
//	R     restart the clock, which starts a new sweep on the host
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 0 {
				runCommand(serialBuffer[:serialPos])
			}
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			// Overlong line - reset buffer
			serialPos = 0
		}
	}
}

func runCommand(cmd []byte) {
	switch cmd[0] {
	case 'C':
		if len(cmd) == 2 && cmd[1] >= '1' && cmd[1] <= '0'+MAX_CHANNELS {
			channels = int(cmd[1] - '0')
		}
	case 'R':
		epoch = time.Now()
	}
}
