package plugin

import (
	"fmt"
	"strings"
)

// FormatHelpText 为所有注册的生成器生成帮助文本
func FormatHelpText(registry *Registry) string {
	generators := registry.Generators()
	if len(generators) == 0 {
		return "  (暂无已注册的生成器)\n"
	}

	var sb strings.Builder

	for _, gen := range generators {
		annotations := gen.Annotations()
		mainAnnotation := gen.PrimaryAnnotation()
		paramDefs := gen.ParamDefs()

		targets := make([]string, 0, len(gen.SupportedTargets()))
		for _, k := range gen.SupportedTargets() {
			targets = append(targets, k.String())
		}

		fmt.Fprintf(&sb, "  @%s - %s (%s)\n", mainAnnotation, gen.Name(), strings.Join(targets, ", "))
		if len(annotations) > 1 {
			fmt.Fprintf(&sb, "    附属注解: @%s\n", strings.Join(annotations[1:], ", @"))
		}

		sb.WriteString("    参数:\n")
		sb.WriteString("      output - 输出文件路径（支持模板变量 $FILE, $PACKAGE）\n")
		for _, param := range paramDefs {
			sb.WriteString("      " + FormatParamDef(param) + "\n")
		}

		sb.WriteString("    示例:\n")
		fmt.Fprintf(&sb, "      @%s\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$FILE_status.go)\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$PACKAGE_status.go)\n", mainAnnotation)

		shown := 0
		for _, param := range paramDefs {
			if shown >= 2 {
				break
			}
			if param.Default != "" {
				fmt.Fprintf(&sb, "      @%s(%s=%s)\n", mainAnnotation, param.Name, param.Default)
				shown++
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatParamDef 格式化单个参数定义
// 格式: name (必填) [默认: xxx] - 描述
func FormatParamDef(param ParamDef) string {
	var sb strings.Builder
	sb.WriteString(param.Name)
	if param.Required {
		sb.WriteString(" (必填)")
	}
	if param.Default != "" {
		fmt.Fprintf(&sb, " [默认: %s]", param.Default)
	}
	if param.Description != "" {
		sb.WriteString(" - " + param.Description)
	}
	return sb.String()
}
