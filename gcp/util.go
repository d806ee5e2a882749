package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/serviceusage/v1"
)

func checkErrCode(err error, code int) bool {
	if err == nil {
		return false
	}

	e := &googleapi.Error{}
	if errors.As(err, &e) && e.Code == code {
		return true
	}

	return false
}

func ErrIs403(err error) bool {
	return checkErrCode(err, 403)
}

func ErrIs404(err error) bool {
	return checkErrCode(err, 404)
}

func ErrIs409(err error) bool {
	return checkErrCode(err, 409)
}

func ErrExtractMissingAPI(err error) string {
	e := &googleapi.Error{}

	if !errors.As(err, &e) {
		return ""
	}

	for _, d := range e.Details {
		m, ok := d.(map[string]interface{})

		if !ok {
			continue
		}

		if m["@type"] != "type.googleapis.com/google.rpc.ErrorInfo" {
			continue
		}

		meta, ok := m["metadata"]
		if !ok {
			continue
		}

		metamap, ok := meta.(map[string]interface{})
		if !ok {
			continue
		}

		service, _ := metamap["service"].(string)

		return service
	}

	return ""
}

func ComputeOperationError(err *compute.OperationError) error {
	if err == nil {
		return nil
	}

	var buf bytes.Buffer
	for _, err := range err.Errors {
		buf.WriteString(err.Message + "\n")
	}

	return errors.New(buf.String())
}

func WaitForGlobalComputeOperation(cli *compute.Service, project, name string) error {
	for {
		op, err := cli.GlobalOperations.Wait(project, name).Do()
		if err != nil {
			return err
		}

		if op.Status == OperationDone {
			return ComputeOperationError(op.Error)
		}
	}
}

func WaitForZoneComputeOperation(cli *compute.Service, project, zone, name string) error {
	for {
		op, err := cli.ZoneOperations.Wait(project, zone, name).Do()
		if err != nil {
			return err
		}

		if op.Status == OperationDone {
			return ComputeOperationError(op.Error)
		}
	}
}

func WaitForServiceUsageOperation(ctx context.Context, cli *serviceusage.Service, op *serviceusage.Operation) error {
	if op.Done {
		return nil
	}

	t := time.NewTicker(time.Second)
	defer t.Stop()

	var err error

	for {
		op, err = cli.Operations.Get(op.Name).Do()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		if op.Done {
			if op.Error != nil {
				return errors.New(op.Error.Message)
			}

			return nil
		}
	}
}

// SingleIPRange turns a bare IPv4 address into a /32 CIDR. Inputs that already
// carry a mask are returned unchanged.
func SingleIPRange(ip string) string {
	if strings.Contains(ip, "/") {
		return ip
	}

	return fmt.Sprintf("%s/32", ip)
}
