package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LiboWorks/task-automator/internal/compiler"
	"github.com/LiboWorks/task-automator/internal/generator"
)

var (
	inputFile    string
	outputDir    string
	outputName   string
	modulePath   string
	saveTemplate bool
	dryRun       bool
)

// compileCmd represents the compile command
var compileCmd = &cobra.Command{
	Use:   "compile [workflow-file]",
	Short: "Generate Python scripts from a workflow file",
	Long: `Compile turns a YAML or JSON workflow definition into standalone
Python scripts, one per workflow. Scripts that fail the grammar check are
reported and not written.

Examples:
  automator compile -i workflow.yaml -o ./scripts
  automator compile workflow_template.json --module ./helpers.py
  automator compile -i workflow.yaml --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Support both -i flag and positional argument
		workflowFile := inputFile
		if workflowFile == "" && len(args) > 0 {
			workflowFile = args[0]
		}
		if workflowFile == "" {
			return fmt.Errorf("workflow file required: use -i <file> or provide as argument")
		}

		fmt.Println("🔧 Starting compilation...")

		opts, err := compiler.OptionsFromConfig(cfg, backends, log)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output") || opts.OutputDir == "" {
			opts.OutputDir = outputDir
		}
		if modulePath != "" {
			opts.ModulePath = modulePath
		}
		opts.OutputName = outputName
		opts.SaveTemplate = saveTemplate
		opts.SkipWrite = dryRun

		result, err := compiler.CompileFile(workflowFile, opts)
		if result == nil {
			return err
		}

		for _, a := range result.Artifacts {
			fmt.Printf("📋 Workflow loaded: %s\n", a.Workflow.Name)
			fmt.Printf("🧩 Steps: %d\n", len(a.Workflow.Steps))
			for _, w := range a.Script.Warnings {
				fmt.Printf("⚠️  %s\n", w)
			}
			switch {
			case !a.Script.Valid && a.Script.SyntaxError != nil:
				fmt.Printf("❌ Generated script is not valid Python: %v\n", a.Script.SyntaxError)
			case !a.Script.Valid:
				fmt.Println("❌ Generated script could not be validated")
			case a.ScriptFile != "":
				fmt.Printf("✅ Script written to %s\n", a.ScriptFile)
			default:
				fmt.Println("✅ Script is valid (dry run, nothing written)")
			}
			if a.TemplateFile != "" {
				fmt.Printf("📄 Template saved at %s\n", a.TemplateFile)
			}
		}

		if errors.Is(err, generator.ErrInvalidScript) {
			return fmt.Errorf("some scripts failed validation")
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input workflow file (YAML or JSON)")
	compileCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory for generated scripts")
	compileCmd.Flags().StringVarP(&outputName, "name", "n", "", "Script name when the file holds one workflow")
	compileCmd.Flags().StringVarP(&modulePath, "module", "m", "", "Python module with custom functions")
	compileCmd.Flags().BoolVar(&saveTemplate, "template", false, "Also save each workflow as <name>_template.json")
	compileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate only, write nothing")
}
