package plugin

import (
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ParseParamsFromStruct 从结构体的 tag 解析参数定义
// 支持的 tag: name, required, default, description
//
// 示例:
//
//	type Params struct {
//	    Func   string `param:"name=func,required=false,default=,description=生成的函数名" validate:"omitempty,goident"`
//	    Logger string `param:"name=logger,required=false,default=grpcerr,description=日志后端" validate:"oneof=grpcerr slog zap"`
//	}
//
//	params := plugin.ParseParamsFromStruct(Params{})
func ParseParamsFromStruct(v any) []ParamDef {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}

	var params []ParamDef
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("param")
		if tag == "" {
			continue
		}
		if def := parseParamTag(tag); def.Name != "" {
			params = append(params, def)
		}
	}
	return params
}

// parseParamTag 解析 param tag 字符串
// 格式: name=xxx,required=true,default=xxx,description=xxx
func parseParamTag(tag string) ParamDef {
	var param ParamDef
	for key, value := range splitTag(tag) {
		switch key {
		case "name":
			param.Name = value
		case "required":
			param.Required = value == "true"
		case "default":
			param.Default = value
		case "description":
			param.Description = value
		}
	}
	return param
}

// splitTag 分割 tag 字符串为键值对，支持 \ 转义
func splitTag(tag string) map[string]string {
	result := make(map[string]string)

	var key, value strings.Builder
	inKey := true
	escaped := false

	flush := func() {
		if key.Len() > 0 {
			result[key.String()] = value.String()
		}
		key.Reset()
		value.Reset()
		inKey = true
	}

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
			continue
		case ch == '=' && inKey:
			inKey = false
			continue
		case ch == ',':
			flush()
			continue
		}
		if inKey {
			key.WriteByte(ch)
		} else {
			value.WriteByte(ch)
		}
	}
	flush()

	return result
}

// ParseAnnotationParams 将注解的参数解析到目标结构体中，并执行 validate 校验
// target 必须是结构体指针；注解中缺失的参数使用 paramDefs 中的默认值
func ParseAnnotationParams(annotation *Annotation, target any, paramDefs []ParamDef) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("参数目标必须是非 nil 指针, 得到: %T", target)
	}
	val = val.Elem()
	typ := val.Type()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("参数目标必须是结构体指针, 得到: %T", target)
	}

	defMap := make(map[string]ParamDef, len(paramDefs))
	for _, def := range paramDefs {
		defMap[def.Name] = def
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := field.Tag.Get("param")
		if tag == "" {
			continue
		}
		paramName := parseParamTag(tag).Name
		if paramName == "" {
			continue
		}

		paramValue, ok := annotation.LookupParam(paramName)
		if !ok {
			def, hasDef := defMap[paramName]
			if hasDef && def.Required {
				return fmt.Errorf("缺少必填参数 %s", paramName)
			}
			paramValue = def.Default
		}

		if err := setFieldValue(fieldVal, paramValue); err != nil {
			return fmt.Errorf("参数 %s 无效: %w", paramName, err)
		}
	}

	return ValidateParams(target)
}

// setFieldValue 设置字段值，支持 string, int, bool
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value == "" {
			value = "0"
		}
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intVal)
	case reflect.Bool:
		if value == "" {
			field.SetBool(false)
			return nil
		}
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// paramValidator 返回共享的校验器
// 字段名使用 param tag 中的 name，方便在错误信息中直接对应注解参数
func paramValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := parseParamTag(f.Tag.Get("param")).Name; name != "" {
				return name
			}
			return f.Name
		})
		// goident: 合法的 Go 标识符
		_ = validate.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
			return token.IsIdentifier(fl.Field().String())
		})
	})
	return validate
}

// ValidateParams 按 validate tag 校验参数结构体
func ValidateParams(params any) error {
	err := paramValidator().Struct(params)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("参数 %s 的值 %q 不满足规则 %s", fe.Field(), fmt.Sprint(fe.Value()), rule))
	}
	return errors.New(strings.Join(msgs, "; "))
}
