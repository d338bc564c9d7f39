package server

import (
	"bufio"
	"context"
	"os"

	log "github.com/sirupsen/logrus"
)

// ForwardStdin reads operator console lines from the proxy's own stdin
// and forwards them to the server process while one is alive. It must be
// started once; stdin has a single reader for the proxy lifetime.
func (s *Server) ForwardStdin(ctx context.Context) {
	lines := make(chan string)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text() + "\n"
		}
		if err := scanner.Err(); err != nil {
			log.WithError(err).Warn("Failed to read from stdin")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			s.ForwardCommand(line)
		}
	}
}
