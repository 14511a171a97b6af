package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/relaychat/internal/client"
)

func main() {
	useUI := flag.Bool("ui", false, "use the terminal UI")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-ui] HOST PORT NAME\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}
	addr := net.JoinHostPort(flag.Arg(0), flag.Arg(1))
	name := flag.Arg(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := client.Dial(ctx, addr)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Enter(name); err != nil {
		fmt.Fprintf(os.Stderr, "failed to enter as %q: %v\n", name, err)
		os.Exit(1)
	}

	if *useUI {
		err = runUI(c, addr, name)
	} else {
		err = runLines(c, os.Stdin, os.Stdout)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runLines sends every input line and prints every server frame until either side ends.
func runLines(c *client.Client, in io.Reader, out io.Writer) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	recvErr := make(chan error, 1)
	go func() {
		for {
			p, err := c.Next()
			if err != nil {
				recvErr <- err
				return
			}
			fmt.Fprintln(out, client.Format(p))
		}
	}()

	sendErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if err := c.Send(scanner.Text()); err != nil {
				sendErr <- err
				return
			}
		}
		sendErr <- scanner.Err()
	}()

	select {
	case <-sigChan:
		return nil
	case err := <-sendErr:
		return err
	case err := <-recvErr:
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "connection closed by server")
			return nil
		}
		return err
	}
}
