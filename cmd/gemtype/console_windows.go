//go:build windows

package main

import (
	"golang.org/x/sys/windows"
)

// hideConsoleWindow detaches the console so the resident app runs windowless
// when launched from Explorer.
func hideConsoleWindow() {
	kernel32 := windows.NewLazySystemDLL("kernel32.dll")
	user32 := windows.NewLazySystemDLL("user32.dll")
	getConsoleWindow := kernel32.NewProc("GetConsoleWindow")
	showWindow := user32.NewProc("ShowWindow")

	const swHide = 0
	hwnd, _, _ := getConsoleWindow.Call()
	if hwnd != 0 {
		_, _, _ = showWindow.Call(hwnd, swHide)
	}
}
