// Command fleetctl is a small client for the orchestrator control plane.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

const usage = `usage: fleetctl [-addr URL] <command> [flags]

commands:
  status                      show the agent table
  deploy [-wait] [components] start a deployment
  register -id ID -type TYPE  register an agent
  watch -id ID                print events pushed to an agent
`

func main() {
	addr := flag.String("addr", "http://localhost:3000", "control plane base URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	log.SetFlags(log.Ltime)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "status":
		err = runStatus(ctx, NewClient(*addr, ""))
	case "deploy":
		err = runDeploy(ctx, *addr, args)
	case "register":
		err = runRegister(ctx, *addr, args)
	case "watch":
		err = runWatch(ctx, *addr, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func runStatus(ctx context.Context, client *Client) error {
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d agents, %d healthy\n\n", status.TotalAgents, status.HealthyAgents)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tLAST SEEN\tCAPABILITIES")
	for _, a := range status.Agents {
		seen := time.UnixMilli(a.LastSeen).Format(time.TimeOnly)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Type, a.Status, seen, strings.Join(a.Capabilities, ","))
	}
	return w.Flush()
}

func runDeploy(ctx context.Context, addr string, args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	strategy := fs.String("strategy", domain.DeployStrategySequential, "deployment strategy")
	wait := fs.Bool("wait", false, "wait for the deployment to finish")
	_ = fs.Parse(args)

	client := NewClient(addr, "")
	id, err := client.Deploy(ctx, fs.Args(), *strategy)
	if err != nil {
		return err
	}
	fmt.Println("deployment", id, "initiated")
	if !*wait {
		return nil
	}

	d, err := client.WaitDeployment(ctx, id, 500*time.Millisecond)
	if err != nil {
		return err
	}
	for _, s := range d.Steps {
		mark := "ok"
		if !s.Success {
			mark = "FAILED: " + s.Error
		}
		fmt.Printf("  %-20s %-12s %s\n", s.AgentID, s.AgentType, mark)
	}
	fmt.Println("status:", d.Status)
	if d.Status == domain.DeploymentStatusFailed {
		return fmt.Errorf("deployment %s failed: %s", id, d.Error)
	}
	return nil
}

func runRegister(ctx context.Context, addr string, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	id := fs.String("id", "", "agent id")
	typ := fs.String("type", "", "agent type")
	endpoint := fs.String("endpoint", "", "agent endpoint URL")
	caps := fs.String("capabilities", "", "comma separated capabilities")
	healthy := fs.Bool("healthy", false, "send a healthy heartbeat after registering")
	_ = fs.Parse(args)

	if *id == "" || *typ == "" {
		return fmt.Errorf("-id and -type are required")
	}

	client := NewClient(addr, *id)
	req := domain.RegisterRequest{
		AgentID:      *id,
		Type:         domain.AgentType(*typ),
		Capabilities: splitList(*caps),
		Endpoint:     *endpoint,
	}
	if err := client.Register(ctx, req); err != nil {
		return err
	}
	fmt.Println("registered", *id)

	if *healthy {
		return client.Heartbeat(ctx, *id, domain.AgentStatusHealthy)
	}
	return nil
}

func runWatch(ctx context.Context, addr string, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	id := fs.String("id", "", "agent id to watch as")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	conn, err := NewClient(addr, *id).Stream(ctx, *id)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	fmt.Printf("watching events for %s\n", *id)
	for {
		var ev domain.PushEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		data, _ := json.MarshalIndent(ev.Data, "", "  ")
		fmt.Printf("\n[%s] %s\n%s\n", ev.Event, time.UnixMilli(ev.Timestamp).Format(time.TimeOnly), data)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
