// cmd/retriever/menu.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github-analytics-retriever/internal/tasks"
)

const banner = "====================================================="

// menu lists the task catalog, reads one selection and runs it.
type menu struct {
	in    io.Reader
	out   io.Writer
	tasks []tasks.Task
	now   func() time.Time
}

func newMenu(in io.Reader, out io.Writer, catalog []tasks.Task) *menu {
	return &menu{in: in, out: out, tasks: catalog, now: time.Now}
}

// Run prints the catalog and executes the selected task. An invalid
// selection aborts without error; the task's own error is returned.
func (m *menu) Run(ctx context.Context) error {
	m.welcome()

	id, ok, err := m.selectTask()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "Aborting...")
		return nil
	}

	task := m.tasks[id-1]
	fmt.Fprintf(m.out, "\nExecuting task #%d - %s ...\n\n", id, task.Name)

	start := m.now()
	runErr := task.Run(ctx)
	elapsed := m.now().Sub(start)

	fmt.Fprintln(m.out)
	fmt.Fprintf(m.out, "Finished %s in %.2f seconds\n", task.Name, elapsed.Seconds())
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, banner)
	fmt.Fprintln(m.out, "Thank you for using Github Analytics Data Retriever!")
	fmt.Fprintln(m.out, banner)
	return runErr
}

func (m *menu) welcome() {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, banner)
	fmt.Fprintln(m.out, "Welcome to the Github Analytics Data Retriever!")
	fmt.Fprintln(m.out, banner)
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "What do you want to do?")
	fmt.Fprintln(m.out)
	for i, task := range m.tasks {
		fmt.Fprintf(m.out, "\t%d - %s\n", i+1, task.Name)
	}
}

// selectTask reads a 1-based task number. ok is false when the input is not
// a listed number.
func (m *menu) selectTask() (id int, ok bool, err error) {
	fmt.Fprintln(m.out)
	fmt.Fprint(m.out, "Please enter the number of the task you want to execute: ")

	line, err := bufio.NewReader(m.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, false, fmt.Errorf("read selection: %w", err)
	}
	id, convErr := strconv.Atoi(strings.TrimSpace(line))
	if convErr != nil || id < 1 || id > len(m.tasks) {
		fmt.Fprintln(m.out, "Invalid task number")
		return 0, false, nil
	}
	return id, true, nil
}
