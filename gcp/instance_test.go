package gcp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"
)

func TestMakeInstanceDefaults(t *testing.T) {
	inst := makeInstance("demo", "us-central1-a", &InstanceOptions{Name: "armorlab-probe"})

	assert.Equal(t, "armorlab-probe", inst.Name)
	assert.Equal(t, "projects/demo/zones/us-central1-a/machineTypes/e2-micro", inst.MachineType)

	require.Len(t, inst.Disks, 1)
	assert.True(t, inst.Disks[0].Boot)
	assert.Equal(t, "projects/debian-cloud/global/images/family/debian-12", inst.Disks[0].InitializeParams.SourceImage)

	require.Len(t, inst.NetworkInterfaces, 1)
	nic := inst.NetworkInterfaces[0]
	assert.Equal(t, "projects/demo/global/networks/default", nic.Network)
	require.Len(t, nic.AccessConfigs, 1)
	assert.Equal(t, AccessConfigNAT, nic.AccessConfigs[0].Type)

	assert.Nil(t, inst.Tags)
	assert.Nil(t, inst.Metadata)
}

func TestMakeInstanceTagsAndKeys(t *testing.T) {
	inst := makeInstance("demo", "us-central1-a", &InstanceOptions{
		Name:          "armorlab-probe",
		MachineType:   "e2-small",
		Tags:          []string{"armorlab-probe"},
		SSHPublicKey:  "armorlab:ssh-ed25519 AAAA...",
		StartupScript: "#!/bin/sh\ntrue\n",
	})

	assert.Equal(t, "projects/demo/zones/us-central1-a/machineTypes/e2-small", inst.MachineType)

	require.NotNil(t, inst.Tags)
	assert.Equal(t, []string{"armorlab-probe"}, inst.Tags.Items)

	require.NotNil(t, inst.Metadata)
	require.Len(t, inst.Metadata.Items, 2)
	assert.Equal(t, "ssh-keys", inst.Metadata.Items[0].Key)
	assert.Equal(t, "armorlab:ssh-ed25519 AAAA...", *inst.Metadata.Items[0].Value)
	assert.Equal(t, "startup-script", inst.Metadata.Items[1].Key)
}

func TestInstanceExternalIP(t *testing.T) {
	inst := &compute.Instance{
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				AccessConfigs: []*compute.AccessConfig{
					{Type: AccessConfigNAT, NatIP: "203.0.113.10"},
				},
			},
		},
	}

	assert.Equal(t, "203.0.113.10", InstanceExternalIP(inst))
	assert.Empty(t, InstanceExternalIP(&compute.Instance{}))
}

func TestEnsureInstance(t *testing.T) {
	ctx := context.Background()

	var inserts int

	instances := map[string]*compute.Instance{}

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/zones/us-central1-a/instances/armorlab-probe", func(w http.ResponseWriter, r *http.Request) {
		inst, ok := instances["armorlab-probe"]
		if !ok {
			apiError(w, 404, "not found")

			return
		}

		writeJSON(t, w, inst)
	})
	mux.HandleFunc("/projects/demo/zones/us-central1-a/instances", func(w http.ResponseWriter, r *http.Request) {
		var inst compute.Instance

		require.NoError(t, json.NewDecoder(r.Body).Decode(&inst))

		inst.NetworkInterfaces[0].AccessConfigs[0].NatIP = "203.0.113.10"
		instances[inst.Name] = &inst
		inserts++

		writeJSON(t, w, &compute.Operation{Name: "op-5", Status: OperationDone})
	})
	mux.HandleFunc("/projects/demo/zones/us-central1-a/operations/op-5/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.Operation{Name: "op-5", Status: OperationDone})
	})

	pctx := newTestContext(t, mux)
	opts := &InstanceOptions{Name: "armorlab-probe", Tags: []string{"armorlab-probe"}}

	inst, existed, err := EnsureInstance(ctx, pctx, "demo", "us-central1-a", opts)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "203.0.113.10", InstanceExternalIP(inst))

	inst, existed, err = EnsureInstance(ctx, pctx, "demo", "us-central1-a", opts)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, 1, inserts)
	assert.NotNil(t, inst)
}

func TestDeleteInstance(t *testing.T) {
	ctx := context.Background()

	var deletes int

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/zones/us-central1-a/instances/armorlab-probe", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)

		deletes++

		writeJSON(t, w, &compute.Operation{Name: "op-6", Status: OperationDone})
	})
	mux.HandleFunc("/projects/demo/zones/us-central1-a/operations/op-6/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.Operation{Name: "op-6", Status: OperationDone})
	})

	pctx := newTestContext(t, mux)

	require.NoError(t, DeleteInstance(ctx, pctx, "demo", "us-central1-a", "armorlab-probe"))
	assert.Equal(t, 1, deletes)
}
