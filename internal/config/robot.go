package config

import (
	"fmt"
	"os"
)

// DefaultSignallingPort is the robot's WebRTC signalling port.
const DefaultSignallingPort = "8443"

// RobotIP returns the robot IP from ROBOT_IP env var.
// Falls back to the provided default if not set.
func RobotIP(defaultIP string) string {
	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// SignallingURL returns the robot's WebRTC signalling websocket URL.
func SignallingURL(robotIP string) string {
	return fmt.Sprintf("ws://%s:%s", robotIP, DefaultSignallingPort)
}
