package cmd

import (
	"fmt"
	"io"
	"os"
)

type CompletionCmd struct {
	Shell string `arg:"" help:"Shell type: bash, zsh, or fish" enum:"bash,zsh,fish"`
}

func (c *CompletionCmd) Run() error {
	return writeCompletion(os.Stdout, c.Shell)
}

func writeCompletion(w io.Writer, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion
	case "zsh":
		script = zshCompletion
	case "fish":
		script = fishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

const bashCompletion = `# bash completion for gflabels

_gflabels_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Main commands
    if [[ ${COMP_CWORD} -eq 1 ]]; then
        opts="generate assemble inspect init version completion"
        COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        generate)
            case "${prev}" in
                -c|--config)
                    COMPREPLY=( $(compgen -f -X '!*.@(json|yaml|yml)' -- ${cur}) )
                    return 0
                    ;;
                -o|--output|--preview-dir)
                    COMPREPLY=( $(compgen -d -- ${cur}) )
                    return 0
                    ;;
                -l|--label|-w|--workers)
                    return 0
                    ;;
            esac
            opts="-c --config -l --label -t --test -w --workers -o --output --preview-dir --verify -h --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            return 0
            ;;
        assemble)
            case "${prev}" in
                --base-filament|--text-filament)
                    COMPREPLY=( $(compgen -W "1 2 3 4" -- ${cur}) )
                    return 0
                    ;;
            esac
            if [[ ${cur} == -* ]]; then
                opts="-o --output --base-filament --text-filament --verify --open -h --help"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.3mf' -- ${cur}) )
            fi
            return 0
            ;;
        inspect)
            if [[ ${cur} == -* ]]; then
                opts="--xml --verify -h --help"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.3mf' -- ${cur}) )
            fi
            return 0
            ;;
        init)
            opts="-o --output -h --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            return 0
            ;;
        completion)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                opts="bash zsh fish"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            fi
            return 0
            ;;
    esac
}

complete -F _gflabels_completions gflabels
`

const zshCompletion = `#compdef gflabels

_gflabels() {
    local -a commands
    commands=(
        'generate:Generate Bambu-ready multi-material labels from a config file'
        'assemble:Assemble a base and a text 3MF export into one package'
        'inspect:Inspect a 3MF file and show its contents'
        'init:Create a label config interactively'
        'version:Show version information'
        'completion:Generate shell completion script'
    )

    local -a generate_opts
    generate_opts=(
        '(-c --config)'{-c,--config}'[Label config file]:config file:_files -g "*.{json,yaml,yml}"'
        '(-l --label -t --test)'{-l,--label}'[Generate only this label]:label:'
        '(-l --label -t --test)'{-t,--test}'[Generate only the first label]'
        '(-w --workers)'{-w,--workers}'[Labels generated in parallel]:workers:'
        '(-o --output)'{-o,--output}'[Output directory]:directory:_directories'
        '--preview-dir[Render PNG previews into this directory]:directory:_directories'
        '--verify[Check every assembled package]'
        '(-h --help)'{-h,--help}'[Show help]'
    )

    local -a assemble_opts
    assemble_opts=(
        '(-o --output)'{-o,--output}'[Output file path]:output file:_files -g "*.3mf"'
        '--base-filament[Filament slot of the label body]:slot:(1 2 3 4)'
        '--text-filament[Filament slot of the text and icon]:slot:(1 2 3 4)'
        '--verify[Check the assembled package]'
        '--open[Open the result file in the default application]'
        '(-h --help)'{-h,--help}'[Show help]'
        '*:3mf file:_files -g "*.3mf"'
    )

    local -a inspect_opts
    inspect_opts=(
        '--xml[Print the syntax highlighted model document]'
        '--verify[Check the package is a valid assembled label]'
        '(-h --help)'{-h,--help}'[Show help]'
        '*:3mf file:_files -g "*.3mf"'
    )

    local -a completion_shells
    completion_shells=(
        'bash:Generate bash completion'
        'zsh:Generate zsh completion'
        'fish:Generate fish completion'
    )

    _arguments -C \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                generate)
                    _arguments $generate_opts
                    ;;
                assemble)
                    _arguments $assemble_opts
                    ;;
                inspect)
                    _arguments $inspect_opts
                    ;;
                init)
                    _arguments '(-o --output)'{-o,--output}'[Config file to create]:config file:_files' '(-h --help)'{-h,--help}'[Show help]'
                    ;;
                completion)
                    _describe 'shell' completion_shells
                    ;;
                version)
                    _arguments '(-h --help)'{-h,--help}'[Show help]'
                    ;;
            esac
            ;;
    esac
}

_gflabels
`

const fishCompletion = `# fish completion for gflabels

# Main commands
complete -c gflabels -f -n "__fish_use_subcommand" -a "generate" -d "Generate labels from a config file"
complete -c gflabels -f -n "__fish_use_subcommand" -a "assemble" -d "Assemble a base and a text 3MF export"
complete -c gflabels -f -n "__fish_use_subcommand" -a "inspect" -d "Inspect a 3MF file and show its contents"
complete -c gflabels -f -n "__fish_use_subcommand" -a "init" -d "Create a label config interactively"
complete -c gflabels -f -n "__fish_use_subcommand" -a "version" -d "Show version information"
complete -c gflabels -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# generate command options
complete -c gflabels -f -n "__fish_seen_subcommand_from generate" -s c -l config -d "Label config file" -r -a "(__fish_complete_suffix .json)"
complete -c gflabels -f -n "__fish_seen_subcommand_from generate" -s l -l label -d "Generate only this label" -r
complete -c gflabels -f -n "__fish_seen_subcommand_from generate" -s t -l test -d "Generate only the first label"
complete -c gflabels -f -n "__fish_seen_subcommand_from generate" -s w -l workers -d "Labels generated in parallel" -r
complete -c gflabels -n "__fish_seen_subcommand_from generate" -s o -l output -d "Output directory" -r -a "(__fish_complete_directories)"
complete -c gflabels -n "__fish_seen_subcommand_from generate" -l preview-dir -d "Render PNG previews into this directory" -r -a "(__fish_complete_directories)"
complete -c gflabels -f -n "__fish_seen_subcommand_from generate" -l verify -d "Check every assembled package"

# assemble command options
complete -c gflabels -f -n "__fish_seen_subcommand_from assemble" -s o -l output -d "Output file path" -r -a "(__fish_complete_suffix .3mf)"
complete -c gflabels -f -n "__fish_seen_subcommand_from assemble" -l base-filament -d "Filament slot of the label body" -r -a "1 2 3 4"
complete -c gflabels -f -n "__fish_seen_subcommand_from assemble" -l text-filament -d "Filament slot of the text and icon" -r -a "1 2 3 4"
complete -c gflabels -f -n "__fish_seen_subcommand_from assemble" -l verify -d "Check the assembled package"
complete -c gflabels -f -n "__fish_seen_subcommand_from assemble" -l open -d "Open the result file in the default application"
complete -c gflabels -n "__fish_seen_subcommand_from assemble" -a "(__fish_complete_suffix .3mf)" -d "3MF file"

# inspect command options
complete -c gflabels -f -n "__fish_seen_subcommand_from inspect" -l xml -d "Print the syntax highlighted model document"
complete -c gflabels -f -n "__fish_seen_subcommand_from inspect" -l verify -d "Check the package is a valid assembled label"
complete -c gflabels -n "__fish_seen_subcommand_from inspect" -a "(__fish_complete_suffix .3mf)" -d "3MF file"

# init command options
complete -c gflabels -n "__fish_seen_subcommand_from init" -s o -l output -d "Config file to create" -r

# completion command options
complete -c gflabels -f -n "__fish_seen_subcommand_from completion" -a "bash" -d "Generate bash completion"
complete -c gflabels -f -n "__fish_seen_subcommand_from completion" -a "zsh" -d "Generate zsh completion"
complete -c gflabels -f -n "__fish_seen_subcommand_from completion" -a "fish" -d "Generate fish completion"
`

func (c *CompletionCmd) Help() string {
	return `
Generate shell completion scripts for gflabels.

Examples:
  # Bash
  gflabels completion bash > ~/.local/share/bash-completion/completions/gflabels

  # Zsh
  gflabels completion zsh > ~/.zsh/completion/_gflabels
  # or add to .zshrc:
  autoload -U compinit && compinit

  # Fish
  gflabels completion fish > ~/.config/fish/completions/gflabels.fish
`
}
