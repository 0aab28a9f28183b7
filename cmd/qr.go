package main

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/skip2/go-qrcode"
)

// remoteURL is the page address phones should open. Without a LAN address
// it falls back to localhost, which only helps on this machine.
func remoteURL(addresses []string, port int) string {
	host := "localhost"
	if len(addresses) > 0 {
		host = addresses[0]
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}

// DisplayRemoteQR prints url as a terminal QR code with a plain-text fallback.
func DisplayRemoteQR(w io.Writer, url string) {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(w, "Error generating QR code: %v\n", err)
		fmt.Fprintf(w, "Remote listener running: %s\n", url)
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "         SCAN TO CONTROL")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")

	// Half-block characters keep the code small enough for a terminal.
	fmt.Fprint(w, qr.ToSmallString(false))

	fmt.Fprintln(w, "-------------------------------------------")
	fmt.Fprintf(w, "  Open on your phone: %s\n", url)
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")
}
