// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
	"github.com/relabs-tech/vision_telemetry/internal/tracking"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// Goal colour selection modes accepted by GOAL_COLOR.
const (
	GoalColorAuto   = "auto"
	GoalColorYellow = "yellow"
	GoalColorBlue   = "blue"
)

// Vision sources accepted by VISION_SOURCE.
const (
	VisionSourceMQTT   = "mqtt"
	VisionSourceReplay = "replay"
)

// Config holds all application configuration values.
// It is built once at startup and treated as read-only afterwards.
type Config struct {
	// Telemetry serial link
	SerialPort     string
	SerialBaudRate int
	SerialDataBits int
	SerialStopBits int
	SerialParity   string
	SerialBreakMS  int

	// Optical axis projection in image coordinates
	CenterX float64
	CenterY float64

	// Distance curve: range = M*e^(T*raw) + C*raw + D
	Curve tracking.DistanceCurve

	// Colour thresholds (LAB)
	ThreshBall       vision.Threshold
	ThreshYellowGoal vision.Threshold
	ThreshBlueGoal   vision.Threshold

	BallMinPixels   int
	GoalMinPixels   int
	GoalMergeMargin int

	// Goal colour latch
	GoalColor          string // "auto", "yellow" or "blue"
	GoalFallbackColor  tracking.GoalColor
	GoalLatchAttempts  int
	GoalLatchTimeoutMS int

	// Vision front-end
	VisionSource     string // "mqtt" or "replay"
	VisionReplayFile string

	// MQTT
	MQTTBroker            string
	MQTTClientIDTelemetry string
	MQTTClientIDConsole   string
	MQTTClientIDDisplay   string
	MQTTClientIDWeb       string
	TopicRegions          string
	TopicVisionConfig     string
	TopicTrack            string

	// Status LEDs (GPIO names, empty disables)
	LEDBallPin string
	LEDGoalPin string
	LEDIdlePin string

	// Timing
	FPSLogInterval int // milliseconds, 0 disables

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Sample capture console
	CaptureSerialPort string
	CaptureBaudRate   int
}

// Default returns the configuration used for keys absent from the config file.
// Curve constants and thresholds are the ones fitted for the blue bot.
func Default() *Config {
	return &Config{
		SerialPort:     "/dev/serial0",
		SerialBaudRate: 115200,
		SerialDataBits: 8,
		SerialStopBits: 1,
		SerialParity:   "N",
		SerialBreakMS:  1,

		CenterX: 125,
		CenterY: 126,

		Curve: tracking.DefaultCurve,

		ThreshBall:       vision.Threshold{Name: "ball", LMin: 14, LMax: 62, AMin: 54, AMax: 75, BMin: 11, BMax: 41},
		ThreshYellowGoal: vision.Threshold{Name: "yellow_goal", LMin: 39, LMax: 100, AMin: -24, AMax: 3, BMin: 35, BMax: 67},
		ThreshBlueGoal:   vision.Threshold{Name: "blue_goal", LMin: 0, LMax: 100, AMin: -10, AMax: 0, BMin: -35, BMax: -10},

		BallMinPixels:   0,
		GoalMinPixels:   100,
		GoalMergeMargin: 20,

		GoalColor:          GoalColorAuto,
		GoalFallbackColor:  tracking.GoalBlue,
		GoalLatchAttempts:  10,
		GoalLatchTimeoutMS: 500,

		VisionSource: VisionSourceMQTT,

		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDTelemetry: "vision-telemetry",
		MQTTClientIDConsole:   "vision-console",
		MQTTClientIDDisplay:   "vision-display",
		MQTTClientIDWeb:       "vision-web",
		TopicRegions:          "vision/regions",
		TopicVisionConfig:     "vision/config",
		TopicTrack:            "vision/track",

		FPSLogInterval: 5000,

		DisplayI2CBus:         "",
		DisplayUpdateInterval: 200,

		WebServerPort: 8080,

		CaptureSerialPort: "/dev/ttyACM0",
		CaptureBaudRate:   115200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parsePositive(key, value)
	case "SERIAL_DATA_BITS":
		c.SerialDataBits, err = parseRange(key, value, 5, 8)
	case "SERIAL_STOP_BITS":
		c.SerialStopBits, err = parseRange(key, value, 1, 2)
	case "SERIAL_PARITY":
		c.SerialParity = strings.ToUpper(value)
	case "SERIAL_BREAK_MS":
		c.SerialBreakMS, err = parsePositive(key, value)

	// Geometry
	case "CENTER_X":
		c.CenterX, err = parseFloat(key, value)
	case "CENTER_Y":
		c.CenterY, err = parseFloat(key, value)

	// Distance curve
	case "CURVE_M":
		c.Curve.M, err = parseFloat(key, value)
	case "CURVE_T":
		c.Curve.T, err = parseFloat(key, value)
	case "CURVE_C":
		c.Curve.C, err = parseFloat(key, value)
	case "CURVE_D":
		c.Curve.D, err = parseFloat(key, value)

	// Thresholds
	case "THRESH_BALL":
		c.ThreshBall, err = vision.ParseThreshold("ball", value)
	case "THRESH_YELLOW_GOAL":
		c.ThreshYellowGoal, err = vision.ParseThreshold("yellow_goal", value)
	case "THRESH_BLUE_GOAL":
		c.ThreshBlueGoal, err = vision.ParseThreshold("blue_goal", value)
	case "BALL_MIN_PIXELS":
		c.BallMinPixels, err = parseRange(key, value, 0, 1<<20)
	case "GOAL_MIN_PIXELS":
		c.GoalMinPixels, err = parseRange(key, value, 0, 1<<20)
	case "GOAL_MERGE_MARGIN":
		c.GoalMergeMargin, err = parseRange(key, value, 0, 1<<10)

	// Goal colour latch
	case "GOAL_COLOR":
		switch v := strings.ToLower(value); v {
		case GoalColorAuto, GoalColorYellow, GoalColorBlue:
			c.GoalColor = v
		default:
			return fmt.Errorf("GOAL_COLOR must be auto, yellow or blue, got %q", value)
		}
	case "GOAL_FALLBACK_COLOR":
		gc, perr := tracking.ParseGoalColor(value)
		if perr != nil {
			return fmt.Errorf("invalid GOAL_FALLBACK_COLOR: %w", perr)
		}
		c.GoalFallbackColor = gc
	case "GOAL_LATCH_ATTEMPTS":
		c.GoalLatchAttempts, err = parseRange(key, value, 1, 1000)
	case "GOAL_LATCH_TIMEOUT_MS":
		c.GoalLatchTimeoutMS, err = parsePositive(key, value)

	// Vision front-end
	case "VISION_SOURCE":
		switch v := strings.ToLower(value); v {
		case VisionSourceMQTT, VisionSourceReplay:
			c.VisionSource = v
		default:
			return fmt.Errorf("VISION_SOURCE must be mqtt or replay, got %q", value)
		}
	case "VISION_REPLAY_FILE":
		c.VisionReplayFile = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TELEMETRY":
		c.MQTTClientIDTelemetry = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "TOPIC_REGIONS":
		c.TopicRegions = value
	case "TOPIC_VISION_CONFIG":
		c.TopicVisionConfig = value
	case "TOPIC_TRACK":
		c.TopicTrack = value

	// LEDs
	case "LED_BALL_PIN":
		c.LEDBallPin = value
	case "LED_GOAL_PIN":
		c.LEDGoalPin = value
	case "LED_IDLE_PIN":
		c.LEDIdlePin = value

	// Timing
	case "FPS_LOG_INTERVAL":
		c.FPSLogInterval, err = parseRange(key, value, 0, 3_600_000)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parsePositive(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseRange(key, value, 1, 65535)

	// Capture
	case "CAPTURE_SERIAL_PORT":
		c.CaptureSerialPort = value
	case "CAPTURE_BAUD_RATE":
		c.CaptureBaudRate, err = parsePositive(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	switch c.SerialParity {
	case "N", "E", "O", "NONE", "EVEN", "ODD":
	default:
		return fmt.Errorf("SERIAL_PARITY must be N, E or O, got %q", c.SerialParity)
	}
	if c.VisionSource == VisionSourceReplay && c.VisionReplayFile == "" {
		return fmt.Errorf("VISION_REPLAY_FILE is required when VISION_SOURCE=replay")
	}
	if c.VisionSource == VisionSourceMQTT && c.TopicRegions == "" {
		return fmt.Errorf("TOPIC_REGIONS is required when VISION_SOURCE=mqtt")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTrack == "" {
		return fmt.Errorf("TOPIC_TRACK is required")
	}
	return nil
}

// Center returns the configured optical axis projection.
func (c *Config) Center() tracking.Point {
	return tracking.Point{X: c.CenterX, Y: c.CenterY}
}

// Session builds the immutable per-frame geometry session.
func (c *Config) Session() *tracking.Session {
	return tracking.NewSession(c.Center(), c.Curve)
}

// Settings returns the segmentation requests for the three colour classes.
func (c *Config) Settings() telemetry.Settings {
	return telemetry.Settings{
		Ball:        c.ThreshBall,
		YellowGoal:  c.ThreshYellowGoal,
		BlueGoal:    c.ThreshBlueGoal,
		BallOptions: vision.FindOptions{PixelThreshold: c.BallMinPixels, Merge: true},
		GoalOptions: vision.FindOptions{PixelThreshold: c.GoalMinPixels, Merge: true, Margin: c.GoalMergeMargin},
	}
}

// PortOptions returns the telemetry serial line parameters.
func (c *Config) PortOptions() telemetry.PortOptions {
	return telemetry.PortOptions{
		BaudRate: c.SerialBaudRate,
		DataBits: c.SerialDataBits,
		StopBits: c.SerialStopBits,
		Parity:   c.SerialParity,
	}
}

// BreakDuration is how long the line is held in break after each frame.
func (c *Config) BreakDuration() time.Duration {
	return time.Duration(c.SerialBreakMS) * time.Millisecond
}

// LatchPolicy returns the startup goal colour latch bounds.
func (c *Config) LatchPolicy() telemetry.LatchPolicy {
	return telemetry.LatchPolicy{
		Attempts: c.GoalLatchAttempts,
		Timeout:  time.Duration(c.GoalLatchTimeoutMS) * time.Millisecond,
		Fallback: c.GoalFallbackColor,
	}
}

// FixedGoal reports the goal colour when GOAL_COLOR is not auto.
func (c *Config) FixedGoal() (tracking.GoalColor, bool) {
	if c.GoalColor == GoalColorAuto {
		return 0, false
	}
	gc, err := tracking.ParseGoalColor(c.GoalColor)
	if err != nil {
		return 0, false
	}
	return gc, true
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func parsePositive(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func parseRange(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}
