package bmc

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
)

var argumentPattern = regexp.MustCompile(`<argument>([^<]+)</argument>`)

// Starter starts a program without waiting for it.
type Starter interface {
	Start(name string, args []string) error
}

// ExecStarter starts programs with os/exec and forgets about them.
type ExecStarter struct{}

// Start implements Starter.
func (ExecStarter) Start(name string, args []string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// ParseArguments returns the values of every <argument> element in the
// launch descriptor, in document order.
func ParseArguments(descriptor string) []string {
	matches := argumentPattern.FindAllStringSubmatch(descriptor, -1)
	args := make([]string, 0, len(matches))
	for _, match := range matches {
		args = append(args, match[1])
	}
	return args
}

// FetchDescriptor downloads the JNLP launch descriptor. The firmware
// declares a wrong Content-Length for it, so a body cut short is accepted
// as complete.
func (s *Session) FetchDescriptor(ctx context.Context) (string, error) {
	query := fmt.Sprintf("EXTRNIP=%s&JNLPSTR=JViewer", s.server)
	resp, err := s.get(ctx, s.endpoint(s.cfg.DescriptorPath, query), true)
	if err != nil {
		return "", err
	}
	return s.readBody(resp, readTolerateShort)
}

// LaunchViewer fetches the launch descriptor and starts the viewer with its
// arguments. It returns once the process has started and may be called
// again to open another viewer.
func (s *Session) LaunchViewer(ctx context.Context) error {
	if s.state < AssetsReady {
		return fmt.Errorf("%w: %w", ErrLaunch, ErrAssetsNotReady)
	}
	descriptor, err := s.FetchDescriptor(ctx)
	if err != nil {
		return fmt.Errorf("%w: fetch descriptor: %w", ErrLaunch, err)
	}

	args := s.viewerArgs(ParseArguments(descriptor))
	s.logger.Info("starting viewer", "java", s.cfg.JavaBinary, "args", len(args))
	if err := s.starter.Start(s.cfg.JavaBinary, args); err != nil {
		return fmt.Errorf("%w: start %s: %w", ErrLaunch, s.cfg.JavaBinary, err)
	}
	s.state = ViewerLaunched
	return nil
}

func (s *Session) viewerArgs(descriptorArgs []string) []string {
	args := []string{
		"-Djava.library.path=" + s.cacheDir,
		"-cp",
		filepath.Join(s.cacheDir, "*"),
		s.cfg.EntryPoint,
	}
	return append(args, descriptorArgs...)
}
