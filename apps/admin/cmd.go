package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrRepo user.Repository
	conf    *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addowner -name NAME -email EMAIL [-admin] - create or update an owner account")
	fmt.Println("  resetpassword -email EMAIL - reset an owner's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addOwnerCmd := flag.NewFlagSet("addowner", flag.ExitOnError)
	addOwnerName := addOwnerCmd.String("name", "", "The owner's full name.")
	addOwnerEmail := addOwnerCmd.String("email", "", "The owner's email. The password will be prompted next.")
	addOwnerAdmin := addOwnerCmd.Bool("admin", false, "Grant admin rights.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The owner's email. The password will be prompted next.")

	switch args[1] {
	case "addowner":
		if err := addOwnerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addOwnerName == "" || *addOwnerEmail == "" {
			addOwnerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				addOwnerCmd.Usage()
			}
			return err
		}
		return cli.addOwner(*addOwnerName, *addOwnerEmail, pwd, *addOwnerAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}
