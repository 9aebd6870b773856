// ABOUTME: Admin CLI for kioskgate device fleet management
// ABOUTME: Talks to the HTTP API with a bearer token; manages approvals and assignments

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

const banner = `
 _    _           _                _                      _           _
| | _(_) ___  ___| | ____ _  __ _| |_ ___        __ _  __| |_ __ ___ (_)_ __
| |/ / |/ _ \/ __| |/ / _' |/ _' | __/ _ \_____ / _' |/ _' | '_ ' _ \| | '_ \
|   <| | (_) \__ \   < (_| | (_| | ||  __/_____| (_| | (_| | | | | | | | | | |
|_|\_\_|\___/|___/_|\_\__, |\__,_|\__\___|      \__,_|\__,_|_| |_| |_|_|_| |_|
                      |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("KIOSKGATE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cmd := os.Args[1]
	args := os.Args[2:]
	client := &apiClient{baseURL: baseURL, token: getToken()}

	var err error
	switch cmd {
	case "login":
		err = cmdLogin(client, args)
	case "devices":
		err = cmdDevices(client, args)
	case "device":
		err = cmdDevice(client, args)
	case "pending":
		err = cmdPending(client)
	case "approve":
		err = cmdApprove(client, args)
	case "reject":
		err = cmdReject(client, args)
	case "reset":
		err = cmdReset(client, args)
	case "assign":
		err = cmdAssign(client, args)
	case "events":
		err = cmdEvents(client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: kioskgate-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login <username>             Log in and save the session token")
	fmt.Println("  pending                      List devices awaiting review")
	fmt.Println("  devices                      List all devices")
	fmt.Println("  device <id>                  Show device details and assignments")
	fmt.Println("  approve <id>                 Approve a pending device")
	fmt.Println("  reject <id>                  Reject a pending device or revoke an active one")
	fmt.Println("  reset <id>                   Force-reset a device's credential")
	fmt.Println("  assign <id> <emp,emp,...>    Assign operators to a device")
	fmt.Println("  events <id>                  Show a device's audit trail")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  KIOSKGATE_URL     Server base URL (default: http://localhost:8080)")
	fmt.Println("  KIOSKGATE_TOKEN   Session token (overrides the saved token)")
	fmt.Println()
}

// tokenPath is where login stores the session token.
func tokenPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".kioskgate-token"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "kioskgate", "token")
}

func getToken() string {
	if token := os.Getenv("KIOSKGATE_TOKEN"); token != "" {
		return token
	}
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

type apiClient struct {
	baseURL string
	token   string
}

// call issues a request and decodes the JSON response. Non-2xx responses
// surface the server's error message.
func (c *apiClient) call(method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func cmdLogin(c *apiClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: kioskgate-admin login <username>")
	}
	username := args[0]

	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimSpace(password)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.call(http.MethodPost, "/api/v1/auth/admin/login",
		map[string]string{"username": username, "password": password}, &resp); err != nil {
		return err
	}

	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(resp.AccessToken), 0600); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	color.Green("✓ Logged in as %s", username)
	fmt.Printf("  Token saved to %s\n", path)
	return nil
}

type deviceJSON struct {
	ID            int64  `json:"id"`
	DeviceUUID    string `json:"device_uuid"`
	Name          string `json:"name"`
	AssignedSite  string `json:"assigned_site"`
	Status        string `json:"status"`
	HasCredential bool   `json:"has_credential"`
	AppVersion    string `json:"app_version"`
	CreatedAt     string `json:"created_at"`
}

func printDeviceTable(devices []deviceJSON) {
	if len(devices) == 0 {
		fmt.Println("No devices.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUUID\tNAME\tSITE\tSTATUS\tCREDENTIAL\tAPP")
	for _, d := range devices {
		cred := "-"
		if d.HasCredential {
			cred = "issued"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.DeviceUUID, d.Name, d.AssignedSite, colorStatus(d.Status), cred, d.AppVersion)
	}
	w.Flush()
}

func colorStatus(status string) string {
	switch status {
	case "active":
		return color.GreenString(status)
	case "pending":
		return color.YellowString(status)
	case "rejected", "revoked":
		return color.RedString(status)
	default:
		return status
	}
}

func cmdPending(c *apiClient) error {
	var resp struct {
		Devices []deviceJSON `json:"devices"`
	}
	if err := c.call(http.MethodGet, "/api/v1/admin/devices/pending", nil, &resp); err != nil {
		return err
	}
	printDeviceTable(resp.Devices)
	return nil
}

func cmdDevices(c *apiClient, args []string) error {
	// "devices list" and bare "devices" behave the same
	if len(args) > 0 && args[0] == "pending" {
		return cmdPending(c)
	}
	var resp struct {
		Devices []deviceJSON `json:"devices"`
	}
	if err := c.call(http.MethodGet, "/api/v1/admin/devices/list", nil, &resp); err != nil {
		return err
	}
	printDeviceTable(resp.Devices)
	return nil
}

func parseDeviceID(args []string, usage string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid device id: %s", args[0])
	}
	return id, nil
}

func cmdDevice(c *apiClient, args []string) error {
	id, err := parseDeviceID(args, "kioskgate-admin device <id>")
	if err != nil {
		return err
	}

	var resp struct {
		Device      deviceJSON `json:"device"`
		Assignments []struct {
			EmployeeID int64  `json:"employee_id"`
			AssignedBy int64  `json:"assigned_by"`
			AssignedAt string `json:"assigned_at"`
		} `json:"assignments"`
		Events []eventJSON `json:"events"`
	}
	if err := c.call(http.MethodGet, fmt.Sprintf("/api/v1/admin/devices/%d", id), nil, &resp); err != nil {
		return err
	}

	d := resp.Device
	fmt.Printf("Device %d (%s)\n", d.ID, d.DeviceUUID)
	fmt.Printf("  Name:       %s\n", d.Name)
	fmt.Printf("  Site:       %s\n", d.AssignedSite)
	fmt.Printf("  Status:     %s\n", colorStatus(d.Status))
	fmt.Printf("  Credential: %v\n", d.HasCredential)
	fmt.Printf("  App:        %s\n", d.AppVersion)
	fmt.Printf("  Created:    %s\n", d.CreatedAt)

	fmt.Println()
	if len(resp.Assignments) == 0 {
		fmt.Println("No assigned operators.")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMPLOYEE\tASSIGNED BY\tASSIGNED AT")
		for _, a := range resp.Assignments {
			fmt.Fprintf(w, "%d\t%d\t%s\n", a.EmployeeID, a.AssignedBy, a.AssignedAt)
		}
		w.Flush()
	}

	if len(resp.Events) > 0 {
		fmt.Println()
		fmt.Println("Recent events:")
		printEventTable(resp.Events)
	}
	return nil
}

func cmdApprove(c *apiClient, args []string) error {
	id, err := parseDeviceID(args, "kioskgate-admin approve <id>")
	if err != nil {
		return err
	}

	var device deviceJSON
	if err := c.call(http.MethodPost, fmt.Sprintf("/api/v1/admin/devices/%d/approve", id), nil, &device); err != nil {
		return err
	}
	color.Green("✓ Device %d (%s) is now %s", device.ID, device.DeviceUUID, device.Status)
	return nil
}

func cmdReject(c *apiClient, args []string) error {
	id, err := parseDeviceID(args, "kioskgate-admin reject <id>")
	if err != nil {
		return err
	}

	var device deviceJSON
	if err := c.call(http.MethodPost, fmt.Sprintf("/api/v1/admin/devices/%d/reject", id), nil, &device); err != nil {
		return err
	}
	color.Yellow("✓ Device %d (%s) is now %s", device.ID, device.DeviceUUID, device.Status)
	return nil
}

func cmdReset(c *apiClient, args []string) error {
	id, err := parseDeviceID(args, "kioskgate-admin reset <id>")
	if err != nil {
		return err
	}

	if err := c.call(http.MethodPost, fmt.Sprintf("/api/v1/admin/devices/%d/force-reset-token", id), nil, nil); err != nil {
		return err
	}
	color.Green("✓ Credential reset for device %d; it may fetch a new token", id)
	return nil
}

func cmdAssign(c *apiClient, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: kioskgate-admin assign <id> <emp,emp,...>")
	}
	id, err := parseDeviceID(args, "kioskgate-admin assign <id> <emp,emp,...>")
	if err != nil {
		return err
	}

	var employeeIDs []int64
	for _, part := range strings.Split(args[1], ",") {
		empID, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid employee id: %s", part)
		}
		employeeIDs = append(employeeIDs, empID)
	}

	var resp struct {
		Assigned           int     `json:"assigned"`
		InvalidEmployeeIDs []int64 `json:"invalid_employee_ids"`
	}
	if err := c.call(http.MethodPost, fmt.Sprintf("/api/v1/admin/devices/%d/assign", id),
		map[string]any{"employee_ids": employeeIDs}, &resp); err != nil {
		return err
	}

	color.Green("✓ Assigned %d operator(s)", resp.Assigned)
	if len(resp.InvalidEmployeeIDs) > 0 {
		color.Yellow("  Skipped invalid employee ids: %v", resp.InvalidEmployeeIDs)
	}
	return nil
}

type eventJSON struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	ActorID   *int64         `json:"actor_id"`
	Detail    map[string]any `json:"detail"`
}

func printEventTable(events []eventJSON) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tACTOR\tDETAIL")
	for _, e := range events {
		actor := "-"
		if e.ActorID != nil {
			actor = strconv.FormatInt(*e.ActorID, 10)
		}
		detail := ""
		if len(e.Detail) > 0 {
			if data, err := json.Marshal(e.Detail); err == nil {
				detail = string(data)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Type, actor, detail)
	}
	w.Flush()
}

func cmdEvents(c *apiClient, args []string) error {
	id, err := parseDeviceID(args, "kioskgate-admin events <id>")
	if err != nil {
		return err
	}

	var resp struct {
		Events []eventJSON `json:"events"`
	}
	if err := c.call(http.MethodGet, fmt.Sprintf("/api/v1/admin/devices/%d/events", id), nil, &resp); err != nil {
		return err
	}

	if len(resp.Events) == 0 {
		fmt.Println("No events.")
		return nil
	}
	printEventTable(resp.Events)
	return nil
}
