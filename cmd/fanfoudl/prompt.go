package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"fanfoudl/pkg/auth"
	"fanfoudl/pkg/fanfou"
)

// prompter asks for missing crawl inputs, re-asking until the answer is usable
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// secret reads a line without echo
	secret func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	p.secret = p.readSecret
	return p
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	input, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// albumURL asks until the answer passes ValidateAlbumURL
func (p *prompter) albumURL(prefix string) (string, error) {
	for {
		answer, err := p.line("Album URL: ")
		if err != nil {
			return "", err
		}
		if err := fanfou.ValidateAlbumURL(prefix, answer); err != nil {
			fmt.Fprintf(p.out, "%v\n", err)
			continue
		}
		return answer, nil
	}
}

func (p *prompter) page(label string) (int, error) {
	for {
		answer, err := p.line(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintf(p.out, "%q is not a page number\n", answer)
			continue
		}
		return n, nil
	}
}

// pageRange asks for both bounds again whenever from > to
func (p *prompter) pageRange() (int, int, error) {
	for {
		from, err := p.page("From page: ")
		if err != nil {
			return 0, 0, err
		}
		to, err := p.page("To page: ")
		if err != nil {
			return 0, 0, err
		}
		if from > to {
			fmt.Fprintf(p.out, "From page %d is after to page %d\n", from, to)
			continue
		}
		return from, to, nil
	}
}

// cookie reads the Cookie header without echo. Typing "help" shows the guide.
func (p *prompter) cookie() (string, error) {
	auth.ShowQuickGuide(p.out)
	for {
		fmt.Fprint(p.out, "Cookie: ")
		answer, err := p.secret()
		if err != nil {
			return "", err
		}
		switch strings.TrimSpace(answer) {
		case "":
			continue
		case "help":
			auth.ShowCookieGuide(p.out)
			continue
		}
		return strings.TrimSpace(answer), nil
	}
}

func (p *prompter) readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err == nil {
			return string(b), nil
		}
	}
	input, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// confirm returns true only for an answer starting with y
func (p *prompter) confirm(question string) bool {
	answer, err := p.line(question + " (y/N): ")
	return err == nil && strings.HasPrefix(strings.ToLower(answer), "y")
}
