// Command wsclient is a terminal remote for a stagehand listener. It prints
// every message the listener sends and turns typed lines into requests.
//
// Usage: go run ./cmd/wsclient ws://127.0.0.1:3456/ws
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/clientmsg"
)

const help = `Commands:
  next | prev               navigate the live item
  blank                     take output off screen
  live song <id> [slide]    send a song live
  live verse <book> <ch> [verse] [version]
  songs | search <query>    list or search songs
  lyrics <id>               fetch a song's lyrics
  schedule | themes | translations
  add song <id>             append a song to the schedule
  ping
  {...}                     send raw JSON
`

func main() {
	url := "ws://127.0.0.1:3456/ws"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("Connecting to %s...\n", url)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Print("Connected. Type 'help' for commands.\n")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	messageCount := 0
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					fmt.Printf("Read error: %v\n", err)
				}
				return
			}
			messageCount++
			fmt.Printf("[%d] %s\n", messageCount, describe(data))
		}
	}()

	go readCommands(os.Stdin, os.Stdout, func(data []byte) error {
		return conn.WriteMessage(websocket.TextMessage, data)
	})

	select {
	case <-done:
		fmt.Println("Connection closed")
	case <-interrupt:
		fmt.Println("Interrupted")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	fmt.Printf("Total messages received: %d\n", messageCount)
}

// readCommands turns input lines into frames until in ends.
func readCommands(in io.Reader, out io.Writer, send func([]byte) error) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "help":
			fmt.Fprint(out, help)
			continue
		}

		var data []byte
		if strings.HasPrefix(line, "{") {
			data = []byte(line)
		} else {
			req, err := parseCommand(line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			if data, err = protocol.Encode(req); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
		}
		if err := send(data); err != nil {
			fmt.Fprintf(out, "send failed: %v\n", err)
			return
		}
	}
}

// parseCommand maps a typed line to a request.
func parseCommand(line string) (clientmsg.Request, error) {
	fields := strings.Fields(line)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	num := func(i int) (int, error) {
		if arg(i) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(arg(i))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", arg(i))
		}
		return n, nil
	}

	switch fields[0] {
	case "next":
		return clientmsg.Navigate{Direction: protocol.DirectionNext}, nil
	case "prev":
		return clientmsg.Navigate{Direction: protocol.DirectionPrev}, nil
	case "blank":
		return clientmsg.GoBlank{}, nil
	case "songs":
		return clientmsg.GetSongs{}, nil
	case "search":
		return clientmsg.SearchSongs{Query: strings.TrimSpace(strings.TrimPrefix(line, "search"))}, nil
	case "schedule":
		return clientmsg.GetSchedule{}, nil
	case "themes":
		return clientmsg.GetThemes{}, nil
	case "translations":
		return clientmsg.GetTranslations{}, nil
	case "ping":
		return clientmsg.Ping{}, nil
	case "lyrics":
		id, err := num(1)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("usage: lyrics <id>")
		}
		return clientmsg.GetSongLyrics{SongID: int64(id)}, nil
	case "live", "add":
		item, err := parseItem(fields[1:], num)
		if err != nil {
			return nil, err
		}
		if fields[0] == "add" {
			return clientmsg.AddToSchedule{Item: item}, nil
		}
		return clientmsg.GoLive{Item: item}, nil
	}
	return nil, fmt.Errorf("unknown command %q (try 'help')", fields[0])
}

func parseItem(fields []string, num func(int) (int, error)) (protocol.Item, error) {
	if len(fields) == 0 {
		return protocol.Item{}, fmt.Errorf("usage: live song <id> [slide] | live verse <book> <ch> [verse] [version]")
	}
	switch fields[0] {
	case "song":
		id, err := num(2)
		if err != nil || id <= 0 {
			return protocol.Item{}, fmt.Errorf("usage: live song <id> [slide]")
		}
		slide, err := num(3)
		if err != nil {
			return protocol.Item{}, err
		}
		return protocol.Item{Type: protocol.ItemSong, SongID: int64(id), SlideIndex: slide}, nil
	case "verse":
		if len(fields) < 3 {
			return protocol.Item{}, fmt.Errorf("usage: live verse <book> <ch> [verse] [version]")
		}
		chapter, err := num(3)
		if err != nil || chapter <= 0 {
			return protocol.Item{}, fmt.Errorf("chapter must be a positive number")
		}
		verse, err := num(4)
		if err != nil {
			return protocol.Item{}, err
		}
		item := protocol.Item{Type: protocol.ItemScripture, Book: fields[1], Chapter: chapter, Verse: verse}
		if len(fields) > 4 {
			item.Version = fields[4]
		}
		return item, nil
	}
	return protocol.Item{}, fmt.Errorf("unknown item kind %q", fields[0])
}

// describe renders one listener message for the terminal.
func describe(data []byte) string {
	msg, err := clientmsg.DecodeOutbound(data)
	if err != nil {
		return "raw: " + string(data)
	}
	switch m := msg.(type) {
	case *clientmsg.Connected:
		return "connected as " + m.ClientID
	case *clientmsg.State:
		s := m.State
		if s.CurrentItem == nil {
			return fmt.Sprintf("state live=%t (nothing selected)", s.IsLive)
		}
		return fmt.Sprintf("state live=%t %s %q slide %d/%d", s.IsLive,
			s.CurrentItem.Type, s.CurrentItem.Title, s.CurrentItem.SlideIndex+1, s.CurrentItem.TotalSlides)
	case *clientmsg.Songs:
		parts := make([]string, 0, len(m.Songs))
		for _, song := range m.Songs {
			parts = append(parts, fmt.Sprintf("%d:%s", song.ID, song.Title))
		}
		return fmt.Sprintf("songs (%d) %s", len(m.Songs), strings.Join(parts, ", "))
	case *clientmsg.SongLyrics:
		return fmt.Sprintf("lyrics for song %d: %d sections", m.SongID, len(m.Lyrics))
	case *clientmsg.Scripture:
		return fmt.Sprintf("scripture %s %s %d: %d verses", m.Data.Version, m.Data.Book, m.Data.Chapter, len(m.Data.Verses))
	case *clientmsg.Schedule:
		return fmt.Sprintf("schedule: %d items", len(m.Items))
	case *clientmsg.Themes:
		return fmt.Sprintf("themes: %d", len(m.Themes))
	case *clientmsg.Translations:
		return fmt.Sprintf("translations: %d", len(m.Translations))
	case *clientmsg.Error:
		return "error: " + m.Message
	}
	return "type=" + msg.MessageType()
}
