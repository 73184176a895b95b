//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_US = 100 // Row interval in microseconds (10 kHz per channel)
	MAX_CHANNELS       = 4   // Host displays at most four channels
	DEFAULT_CHANNELS   = 2   // Channels streamed after reset

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Serial configuration
	// Line format: "micros,c0,c1,c2,c3\n"
	// Worst case "4294967295,4095,4095,4095,4095\n" = 31 bytes
	// 10,000 rows/sec * 31 bytes = 310,000 bytes/sec
	// UART 8N1: 10 bits/byte = 3,100,000 baud; over USB CDC the rate is nominal.
	UART_BAUD_RATE = 921600
)

// ADC pins in channel order
var adcPins = [MAX_CHANNELS]machine.Pin{machine.A0, machine.A1, machine.A2, machine.A3}
