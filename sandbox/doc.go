// Package sandbox creates, runs, and removes FreeBSD jails.
//
// A ParameterSet holds the ordered jail parameters. Marshal flattens it into
// the buffer and descriptor layout that jail_set(2) consumes, and a Kernel
// turns it into a jail Handle. The Controller creates the jail on a worker
// goroutine, hands the Handle back to the caller as soon as the jail exists,
// runs the contained command, and removes the jail when asked to.
//
// Usage:
//
//	params := sandbox.NewParameterSet().Apply(
//	    sandbox.RootPath("/"),
//	    sandbox.VNet(true),
//	    sandbox.ChildrenMax(99),
//	    sandbox.Persist(),
//	)
//	ctrl := sandbox.NewController(logger, &sandbox.Config{ExecTool: "jexec"})
//	result, err := ctrl.Run(ctx, sandbox.RunRequest{
//	    Params:  params,
//	    Command: []string{"/bin/sh", "-c", "hostname"},
//	    Destroy: true,
//	    Stdio:   sandbox.InheritStdio(),
//	})
package sandbox
